package session

import (
	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

// State is the protocol state of a single connection.
type State int

// Connection states. Closed is terminal.
const (
	Unjoined State = iota
	Joined
	Closed
)

func (s State) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joined:
		return "joined"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Command is a side effect requested by Dispatch. The connection handler
// executes commands against the hub.
type Command interface {
	command()
}

// JoinCommand asks for the connection to be registered under Name.
type JoinCommand struct {
	Name string
}

// ChatCommand asks for Body to be relayed from Sender.
type ChatCommand struct {
	Sender string
	Body   string
}

// StatusCommand asks for the named session's status to change.
type StatusCommand struct {
	Name   string
	Status protocol.Status
}

func (JoinCommand) command()   {}
func (ChatCommand) command()   {}
func (StatusCommand) command() {}

// Dispatch maps a decoded client frame to the next state and the commands to run.
// It has no side effects.
//
// A JOIN moves an Unjoined connection to Joined; a connection that is already
// joined cannot rename itself. MESSAGE requires a joined connection. STATUS is
// keyed by the declared name rather than by the connection, so it is forwarded in
// either live state and the hub decides whether the name exists. LEAVE and
// USERLIST are server-emitted kinds and are ignored when a client sends them.
//
// When a JoinCommand is rejected the caller must keep the previous state.
func Dispatch(state State, msg protocol.Message) (State, []Command) {
	if state == Closed {
		return Closed, nil
	}

	switch msg.Kind {
	case protocol.KindJoin:
		if state != Unjoined {
			return state, nil
		}
		return Joined, []Command{JoinCommand{Name: msg.Name}}

	case protocol.KindMessage:
		if state != Joined {
			return state, nil
		}
		return state, []Command{ChatCommand{Sender: msg.Name, Body: msg.Body}}

	case protocol.KindStatus:
		return state, []Command{StatusCommand{Name: msg.Name, Status: msg.Status}}

	default:
		return state, nil
	}
}
