// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, protocol state, and lifecycle control for each connection.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/config"
	"github.com/Tyrowin/gochat-presence/internal/errutil"
	"github.com/Tyrowin/gochat-presence/internal/protocol"
	"github.com/Tyrowin/gochat-presence/internal/session"
)

// Client represents a WebSocket client connection in the chat system.
// It owns the connection, its outbound frame queue and its protocol state.
type Client struct {
	id          ulid.ULID
	ctx         context.Context
	conn        *websocket.Conn
	hub         *Hub
	addr        string
	logger      *slog.Logger
	rateLimiter *rateLimiter
	cfg         config.Config

	// state is written only by the read pump.
	state atomic.Int32

	mu     sync.Mutex
	send   chan []byte
	closed bool

	closeOnce sync.Once
}

// NewClient creates a new Client instance with the provided WebSocket connection,
// hub reference, and client address. The client's send channel is buffered
// to cfg.SendBuffer frames. Frame size and rate limits apply only when
// configured.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg config.Config) *Client {
	cfg = cfg.Sanitize()
	if conn != nil && cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := newConnID()
	c := &Client{
		id:     id,
		ctx:    connContext(id),
		conn:   conn,
		hub:    hub,
		addr:   addr,
		logger: hub.logger.With("conn_id", id.String(), "addr", addr),
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
	}
	if cfg.RateLimit.Burst > 0 {
		c.rateLimiter = newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)
	}
	c.state.Store(int32(session.Unjoined))
	return c
}

// Context returns the connection's logging context. It carries a span context
// whose trace ID is the connection ID, so every record logged for the
// connection can be correlated by trace_id.
func (c *Client) Context() context.Context {
	return c.ctx
}

// ID returns the connection identifier.
func (c *Client) ID() ulid.ULID {
	return c.id
}

// Addr returns the remote address of the connection.
func (c *Client) Addr() string {
	return c.addr
}

// State returns the connection's protocol state.
func (c *Client) State() session.State {
	return session.State(c.state.Load())
}

// GetSendChan returns the client's send channel for reading outgoing frames.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return oops.Code(CodePeerClosed).
			With("conn_id", c.id.String()).
			Errorf("connection closed")
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return oops.Code(CodeSendBufferFull).
			With("conn_id", c.id.String()).
			With("capacity", cap(c.send)).
			Errorf("send buffer full")
	}
}

// Close closes the underlying connection, which promptly ends the read pump
// and with it the session. It is safe to call more than once and from any
// goroutine.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.finish()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// finish stops further queuing and lets the write pump drain and exit.
func (c *Client) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.DebugContext(c.ctx, "error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.DebugContext(c.ctx, "error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.WarnContext(c.ctx, "frame exceeded maximum size", "max_bytes", c.cfg.MaxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.logger.DebugContext(c.ctx, "client disconnected", "error", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.DebugContext(c.ctx, "connection closed", "error", err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.logger.WarnContext(c.ctx, "unexpected websocket close", "error", err)
		return true
	}

	c.logger.WarnContext(c.ctx, "websocket read error", "error", err)
	return true
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the frame should be processed
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.hub.metrics.FramesRejected.WithLabelValues(rejectRateLimited).Inc()
		c.logger.WarnContext(c.ctx, "rate limit exceeded; discarding frame",
			"burst", c.cfg.RateLimit.Burst,
			"interval", c.cfg.RateLimit.RefillInterval,
		)
		return false
	}
	return true
}

// processMessage decodes one frame, runs it through the protocol state machine
// and executes the resulting commands. Malformed and out-of-state frames are
// dropped without affecting the connection. It returns true if the frame
// produced at least one accepted command.
func (c *Client) processMessage(raw []byte) bool {
	msg, err := protocol.Decode(string(raw))
	if err != nil {
		var decodeErr *protocol.DecodeError
		reason := protocol.ReasonTooFewFields
		if errors.As(err, &decodeErr) {
			reason = decodeErr.Reason
		}
		c.hub.metrics.FramesRejected.WithLabelValues(reason).Inc()
		c.logger.DebugContext(c.ctx, "ignoring malformed frame", "error", err)
		return false
	}
	c.hub.metrics.FramesReceived.WithLabelValues(string(msg.Kind)).Inc()

	current := c.State()
	next, cmds := session.Dispatch(current, msg)
	if len(cmds) == 0 {
		c.hub.metrics.FramesRejected.WithLabelValues(rejectOutOfState).Inc()
		c.logger.DebugContext(c.ctx, "ignoring frame", "kind", msg.Kind, "state", current)
		return false
	}

	for _, cmd := range cmds {
		if err := c.hub.Execute(c, cmd); err != nil {
			c.hub.metrics.FramesRejected.WithLabelValues(rejectCommand).Inc()
			errutil.Log(c.ctx, c.logger, slog.LevelInfo, "command rejected", err, "kind", msg.Kind)
			return false
		}
	}

	c.state.CompareAndSwap(int32(current), int32(next))
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.state.Store(int32(session.Closed))
		c.hub.Detach(c)
		if err := c.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.DebugContext(c.ctx, "error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			break
		}

		if messageType != websocket.TextMessage {
			c.hub.metrics.FramesRejected.WithLabelValues(rejectBinary).Inc()
			c.logger.DebugContext(c.ctx, "ignoring non-text frame", "type", messageType)
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		return c.handleMessage(frame, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.DebugContext(c.ctx, "error closing connection in writePump", "error", err)
	}
}

// handleMessage writes an outgoing frame and returns false if the connection should be closed
func (c *Client) handleMessage(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.DebugContext(c.ctx, "error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(frame)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.logger.DebugContext(c.ctx, "error writing close message", "error", err)
	}
	return false
}

// writeTextMessage writes one frame as its own text message. Frames are never
// coalesced: one WebSocket message carries exactly one protocol frame.
func (c *Client) writeTextMessage(frame []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.WarnContext(c.ctx, "error writing frame", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.DebugContext(c.ctx, "error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.DebugContext(c.ctx, "error writing ping", "error", err)
		}
		return false
	}
	return true
}
