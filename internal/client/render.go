package client

import (
	"strings"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

// Render formats a received frame as one line of chat log. It returns the
// empty string for frames that have nothing to show.
func Render(msg protocol.Message) string {
	switch msg.Kind {
	case protocol.KindMessage:
		return msg.Name + ": " + msg.Body
	case protocol.KindJoin:
		return msg.Name + " joined the chat"
	case protocol.KindLeave:
		return msg.Name + " left the chat"
	case protocol.KindStatus:
		return msg.Name + " is now " + string(msg.Status)
	case protocol.KindUserList:
		return renderRoster(msg.Roster)
	default:
		return ""
	}
}

func renderRoster(roster []protocol.Entry) string {
	if len(roster) == 0 {
		return "Online users: none"
	}
	items := make([]string, len(roster))
	for i, e := range roster {
		items[i] = e.String()
	}
	return "Online users: " + strings.Join(items, ", ")
}
