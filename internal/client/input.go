package client

import (
	"strings"

	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

// InputKind classifies a line typed by the user.
type InputKind int

// Input kinds.
const (
	InputNone InputKind = iota
	InputChat
	InputStatus
	InputQuit
)

// Input is a parsed line of user input.
type Input struct {
	Kind   InputKind
	Text   string
	Status protocol.Status
}

// ParseInput interprets a line typed by the user. Lines starting with a slash
// are commands (/status <Status>, /quit); any other non-empty line is chat.
func ParseInput(line string) (Input, error) {
	if strings.TrimSpace(line) == "" {
		return Input{Kind: InputNone}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return Input{Kind: InputChat, Text: line}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return Input{Kind: InputQuit}, nil
	case "/status":
		if len(fields) != 2 {
			return Input{}, oops.Errorf("usage: /status %s", statusChoices())
		}
		status, err := protocol.ParseStatus(fields[1])
		if err != nil {
			return Input{}, oops.With("status", fields[1]).Errorf("unknown status %q, choose one of %s", fields[1], statusChoices())
		}
		return Input{Kind: InputStatus, Status: status}, nil
	default:
		return Input{}, oops.With("command", fields[0]).Errorf("unknown command %s", fields[0])
	}
}

func statusChoices() string {
	names := make([]string, len(protocol.Statuses))
	for i, s := range protocol.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}
