package protocol

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// CodeNameInvalid is the oops error code for a display name that cannot be used.
const CodeNameInvalid = "NAME_INVALID"

// MaxNameLength is the longest display name accepted, in runes.
const MaxNameLength = 32

// ReservedChars cannot appear in display names because they delimit frames and
// roster entries.
const ReservedChars = ":(),"

// ValidateName checks that name can be carried in JOIN, STATUS, LEAVE and
// USERLIST frames without corrupting them.
func ValidateName(name string) error {
	errb := oops.Code(CodeNameInvalid).With("name", name)

	switch {
	case name == "":
		return errb.Errorf("name must not be empty")
	case !utf8.ValidString(name):
		return errb.Errorf("name must be valid UTF-8")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return errb.Errorf("name must be at most %d characters", MaxNameLength)
	case strings.TrimSpace(name) != name:
		return errb.Errorf("name must not start or end with whitespace")
	case strings.ContainsAny(name, ReservedChars):
		return errb.Errorf("name must not contain any of %q", ReservedChars)
	case strings.EqualFold(name, SystemSender):
		return errb.Errorf("name %q is reserved", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errb.Errorf("name must not contain control characters")
		}
	}
	return nil
}
