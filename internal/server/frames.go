package server

import (
	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

// delivery is one message addressed to a fixed set of recipients.
type delivery struct {
	to  []Peer
	msg protocol.Message
}

// plan is the ordered list of deliveries produced by a single event. It is
// computed while the hub lock is held and delivered after it is released.
type plan []delivery

func welcomeText(name string) string {
	return "Welcome " + name + " to the chat!"
}

// joinPlan announces a new session: JOIN to everyone, the roster privately to
// the joiner, a system welcome to everyone, then the roster to everyone.
func joinPlan(joiner Peer, all []Peer, name string, roster []protocol.Entry) plan {
	return plan{
		{to: all, msg: protocol.Join(name)},
		{to: []Peer{joiner}, msg: protocol.UserList(roster)},
		{to: all, msg: protocol.SystemNotice(welcomeText(name))},
		{to: all, msg: protocol.UserList(roster)},
	}
}

func leavePlan(all []Peer, name string, roster []protocol.Entry) plan {
	return plan{
		{to: all, msg: protocol.Leave(name)},
		{to: all, msg: protocol.UserList(roster)},
	}
}

func chatPlan(all []Peer, sender, body string) plan {
	return plan{{to: all, msg: protocol.Chat(sender, body)}}
}

func statusPlan(all []Peer, name string, status protocol.Status) plan {
	return plan{{to: all, msg: protocol.StatusUpdate(name, status)}}
}

// noticePlan sends a system message to a single connection.
func noticePlan(to Peer, text string) plan {
	return plan{{to: []Peer{to}, msg: protocol.SystemNotice(text)}}
}
