package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

func TestDispatch(t *testing.T) {
	tests := []struct {
		name      string
		state     State
		msg       protocol.Message
		wantState State
		wantCmds  []Command
	}{
		{
			name:      "join from unjoined",
			state:     Unjoined,
			msg:       protocol.Join("alice"),
			wantState: Joined,
			wantCmds:  []Command{JoinCommand{Name: "alice"}},
		},
		{
			name:      "join while joined is ignored",
			state:     Joined,
			msg:       protocol.Join("mallory"),
			wantState: Joined,
		},
		{
			name:      "chat while joined",
			state:     Joined,
			msg:       protocol.Chat("alice", "hello:world"),
			wantState: Joined,
			wantCmds:  []Command{ChatCommand{Sender: "alice", Body: "hello:world"}},
		},
		{
			name:      "chat before join is ignored",
			state:     Unjoined,
			msg:       protocol.Chat("alice", "hi"),
			wantState: Unjoined,
		},
		{
			name:      "status while joined",
			state:     Joined,
			msg:       protocol.StatusUpdate("alice", protocol.StatusAway),
			wantState: Joined,
			wantCmds:  []Command{StatusCommand{Name: "alice", Status: protocol.StatusAway}},
		},
		{
			name:      "status before join is keyed by name",
			state:     Unjoined,
			msg:       protocol.StatusUpdate("alice", protocol.StatusBusy),
			wantState: Unjoined,
			wantCmds:  []Command{StatusCommand{Name: "alice", Status: protocol.StatusBusy}},
		},
		{
			name:      "client sent leave is ignored",
			state:     Joined,
			msg:       protocol.Leave("bob"),
			wantState: Joined,
		},
		{
			name:      "client sent userlist is ignored",
			state:     Unjoined,
			msg:       protocol.UserList(nil),
			wantState: Unjoined,
		},
		{
			name:      "closed is terminal",
			state:     Closed,
			msg:       protocol.Join("alice"),
			wantState: Closed,
		},
		{
			name:      "closed ignores status",
			state:     Closed,
			msg:       protocol.StatusUpdate("alice", protocol.StatusAway),
			wantState: Closed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotCmds := Dispatch(tt.state, tt.msg)
			assert.Equal(t, tt.wantState, gotState)
			assert.Equal(t, tt.wantCmds, gotCmds)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unjoined", Unjoined.String())
	assert.Equal(t, "joined", Joined.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", State(42).String())
}
