package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
		want string
	}{
		{name: "chat", msg: protocol.Chat("Alice", "hi: there"), want: "Alice: hi: there"},
		{name: "system", msg: protocol.SystemNotice("Welcome Bob to the chat!"), want: "System: Welcome Bob to the chat!"},
		{name: "join", msg: protocol.Join("Bob"), want: "Bob joined the chat"},
		{name: "leave", msg: protocol.Leave("Bob"), want: "Bob left the chat"},
		{name: "status", msg: protocol.StatusUpdate("Alice", protocol.StatusAway), want: "Alice is now Away"},
		{
			name: "roster",
			msg: protocol.UserList([]protocol.Entry{
				{Name: "Alice", Status: protocol.StatusAway},
				{Name: "Bob", Status: protocol.StatusOnline},
			}),
			want: "Online users: Alice(Away), Bob(Online)",
		},
		{name: "empty roster", msg: protocol.UserList(nil), want: "Online users: none"},
		{name: "unknown kind", msg: protocol.Message{Kind: "PING"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.msg))
		})
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Input
		wantErr bool
	}{
		{name: "blank", line: "   ", want: Input{Kind: InputNone}},
		{name: "chat", line: "hello: world", want: Input{Kind: InputChat, Text: "hello: world"}},
		{name: "quit", line: "/quit", want: Input{Kind: InputQuit}},
		{name: "status", line: "/status Busy", want: Input{Kind: InputStatus, Status: protocol.StatusBusy}},
		{name: "status missing", line: "/status", wantErr: true},
		{name: "status unknown", line: "/status Sleeping", wantErr: true},
		{name: "status case sensitive", line: "/status away", wantErr: true},
		{name: "unknown command", line: "/nick Bob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
