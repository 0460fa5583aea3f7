package protocol

import (
	"fmt"
	"strings"
)

// Status is a user's self-declared presence, independent of connectivity.
type Status string

// Presence statuses.
const (
	StatusOnline  Status = "Online"
	StatusAway    Status = "Away"
	StatusBusy    Status = "Busy"
	StatusOffline Status = "Offline"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusOnline, StatusAway, StatusBusy, StatusOffline}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// ParseStatus converts the wire value into a Status. Matching is exact.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}

// Entry is one roster line: a joined name and its current status.
type Entry struct {
	Name   string
	Status Status
}

func (e Entry) String() string {
	return e.Name + "(" + string(e.Status) + ")"
}

// FormatRoster renders entries as comma separated name(status) pairs with no
// trailing comma. An empty roster renders as the empty string.
func FormatRoster(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Name)
		b.WriteByte('(')
		b.WriteString(string(e.Status))
		b.WriteByte(')')
	}
	return b.String()
}

// ParseRoster is the inverse of FormatRoster.
func ParseRoster(value string) ([]Entry, error) {
	if value == "" {
		return nil, nil
	}

	items := strings.Split(value, ",")
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		name, rest, ok := strings.Cut(item, "(")
		if !ok || name == "" || strings.Contains(name, ")") {
			return nil, fmt.Errorf("malformed roster entry %q", item)
		}
		status, ok := strings.CutSuffix(rest, ")")
		if !ok || strings.ContainsAny(status, "()") {
			return nil, fmt.Errorf("malformed roster entry %q", item)
		}
		st, err := ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("roster entry %q: %w", item, err)
		}
		entries = append(entries, Entry{Name: name, Status: st})
	}
	return entries, nil
}
