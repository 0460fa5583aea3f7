// Package protocol encodes and decodes the colon-delimited text frames exchanged
// between chat clients and the relay server.
//
// A frame is a single newline-free UTF-8 string of at most three fields:
// the message kind, a first field, and an optional remainder. Decoding splits on
// the first two colons only, so the remainder (for example chat text) may itself
// contain colons.
package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind identifies the type of a frame.
type Kind string

// Frame kinds. LEAVE and USERLIST are only ever emitted by the server.
const (
	KindJoin     Kind = "JOIN"
	KindMessage  Kind = "MESSAGE"
	KindStatus   Kind = "STATUS"
	KindLeave    Kind = "LEAVE"
	KindUserList Kind = "USERLIST"
)

// SystemSender is the sender name used for server-generated chat messages.
const SystemSender = "System"

const (
	fieldSep  = ":"
	maxFields = 3
)

// Message is a decoded frame. Which fields are meaningful depends on Kind:
//
//	JOIN, LEAVE  Name
//	MESSAGE      Name (sender), Body
//	STATUS       Name, Status
//	USERLIST     Roster
type Message struct {
	Kind   Kind
	Name   string
	Body   string
	Status Status
	Roster []Entry
}

// Join builds a JOIN message announcing name.
func Join(name string) Message {
	return Message{Kind: KindJoin, Name: name}
}

// Chat builds a MESSAGE frame from sender carrying body verbatim.
func Chat(sender, body string) Message {
	return Message{Kind: KindMessage, Name: sender, Body: body}
}

// SystemNotice builds a MESSAGE frame sent on behalf of the server.
func SystemNotice(body string) Message {
	return Chat(SystemSender, body)
}

// StatusUpdate builds a STATUS message for name.
func StatusUpdate(name string, status Status) Message {
	return Message{Kind: KindStatus, Name: name, Status: status}
}

// Leave builds a LEAVE message for name.
func Leave(name string) Message {
	return Message{Kind: KindLeave, Name: name}
}

// UserList builds a USERLIST message carrying roster.
func UserList(roster []Entry) Message {
	return Message{Kind: KindUserList, Roster: roster}
}

// Frame returns the encoded message as bytes ready to be written to a transport.
func (m Message) Frame() []byte {
	return []byte(Encode(m))
}

// String implements fmt.Stringer using the wire encoding.
func (m Message) String() string {
	return Encode(m)
}

// Decode reasons. They form a closed set so they can be used as metric labels.
const (
	ReasonTooFewFields = "too_few_fields"
	ReasonUnknownKind  = "unknown_kind"
	ReasonMissingField = "missing_field"
	ReasonExtraField   = "extra_field"
	ReasonBadStatus    = "bad_status"
	ReasonBadRoster    = "bad_roster"
	ReasonBadEncoding  = "bad_encoding"
)

// DecodeError reports a frame that could not be decoded.
type DecodeError struct {
	Frame  string
	Reason string
	Detail string
}

func (e *DecodeError) Error() string {
	frame := e.Frame
	if len(frame) > 64 {
		frame = frame[:64] + "..."
	}
	if e.Detail != "" {
		return fmt.Sprintf("decode frame %q: %s: %s", frame, e.Reason, e.Detail)
	}
	return fmt.Sprintf("decode frame %q: %s", frame, e.Reason)
}

func decodeError(frame, reason, detail string) error {
	return &DecodeError{Frame: frame, Reason: reason, Detail: detail}
}

// Decode parses a single frame into a Message. It returns a *DecodeError when the
// frame has fewer than two fields, an unknown kind, or fields that do not fit the
// layout of its kind.
func Decode(frame string) (Message, error) {
	if !utf8.ValidString(frame) {
		return Message{}, decodeError(frame, ReasonBadEncoding, "")
	}

	parts := strings.SplitN(frame, fieldSep, maxFields)
	if len(parts) < 2 {
		return Message{}, decodeError(frame, ReasonTooFewFields, "")
	}

	kind := Kind(parts[0])
	switch kind {
	case KindJoin, KindLeave:
		// Anything after the name is ignored.
		return Message{Kind: kind, Name: parts[1]}, nil

	case KindMessage:
		if len(parts) < maxFields {
			return Message{}, decodeError(frame, ReasonMissingField, "body")
		}
		return Chat(parts[1], parts[2]), nil

	case KindStatus:
		if len(parts) < maxFields {
			return Message{}, decodeError(frame, ReasonMissingField, "status")
		}
		status, err := ParseStatus(parts[2])
		if err != nil {
			return Message{}, decodeError(frame, ReasonBadStatus, err.Error())
		}
		return StatusUpdate(parts[1], status), nil

	case KindUserList:
		if len(parts) == maxFields {
			return Message{}, decodeError(frame, ReasonExtraField, "")
		}
		roster, err := ParseRoster(parts[1])
		if err != nil {
			return Message{}, decodeError(frame, ReasonBadRoster, err.Error())
		}
		return UserList(roster), nil

	default:
		return Message{}, decodeError(frame, ReasonUnknownKind, string(kind))
	}
}

// Encode serializes m into its wire form. Text fields are written verbatim;
// callers are responsible for keeping reserved characters out of names.
func Encode(m Message) string {
	switch m.Kind {
	case KindMessage:
		return string(m.Kind) + fieldSep + m.Name + fieldSep + m.Body
	case KindStatus:
		return string(m.Kind) + fieldSep + m.Name + fieldSep + string(m.Status)
	case KindUserList:
		return string(m.Kind) + fieldSep + FormatRoster(m.Roster)
	default:
		return string(m.Kind) + fieldSep + m.Name
	}
}
