// Package server defines the connection abstraction shared by the hub and the
// WebSocket client, together with error codes and utility helpers.
package server

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Error codes attached to oops errors returned by this package.
const (
	CodeSendBufferFull = "SEND_BUFFER_FULL"
	CodePeerClosed     = "PEER_CLOSED"
	CodeHubClosed      = "HUB_CLOSED"
)

// Peer is one open duplex connection as seen by the hub. Send must not block:
// it either queues the frame for delivery or returns an error.
type Peer interface {
	ID() ulid.ULID
	Addr() string
	Send(frame []byte) error
	Close() error
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
