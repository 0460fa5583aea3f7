// Package client is a terminal chat client for the relay. It joins under a
// display name, sends chat and status frames, and delivers decoded server
// frames on a channel.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

const (
	writeWait    = 10 * time.Second
	eventBuffer  = 64
	dialTimeout  = 10 * time.Second
	closeTimeout = time.Second
)

// ErrNotJoined is returned by Say and SetStatus before a successful Join call.
var ErrNotJoined = errors.New("not joined")

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHeader sets extra handshake headers, for example Origin.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		c.header = header
	}
}

// Client is one connection to the relay.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	header http.Header

	writeMu sync.Mutex

	// name is set once the relay echoes JOIN for pending.
	nameMu  sync.Mutex
	name    string
	pending string

	events    chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to the relay's WebSocket endpoint at url and starts reading
// frames. The connection is not joined yet; call Join.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		logger: slog.Default(),
		events: make(chan protocol.Message, eventBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, c.header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, oops.Code("DIAL_FAILED").With("url", url).Wrapf(err, "failed to connect")
	}
	c.conn = conn
	c.logger = c.logger.With("url", url)

	go c.readLoop()
	return c, nil
}

// Name returns the name the relay accepted, or the empty string before the
// relay has confirmed a join.
func (c *Client) Name() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.name
}

// Join asks the relay to register the connection under name. The name is
// checked locally first so frames are never corrupted by reserved characters.
// It takes effect when the relay broadcasts JOIN for it; a refused name leaves
// the client unjoined and the reason arrives on Events as a system message.
func (c *Client) Join(name string) error {
	if err := protocol.ValidateName(name); err != nil {
		return err //nolint:wrapcheck // already an oops error with code and context
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.nameMu.Lock()
	c.pending = name
	c.nameMu.Unlock()

	return c.writeLocked(protocol.Join(name))
}

// observe records the accepted name when the relay echoes our JOIN.
func (c *Client) observe(msg protocol.Message) {
	if msg.Kind != protocol.KindJoin {
		return
	}
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	if c.pending != "" && msg.Name == c.pending {
		c.name = c.pending
		c.pending = ""
	}
}

// Say sends a chat message.
func (c *Client) Say(body string) error {
	name := c.Name()
	if name == "" {
		return ErrNotJoined
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(protocol.Chat(name, body))
}

// SetStatus announces a new presence status.
func (c *Client) SetStatus(status protocol.Status) error {
	if !status.Valid() {
		return oops.With("status", status).Errorf("unknown status %q", status)
	}

	name := c.Name()
	if name == "" {
		return ErrNotJoined
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(protocol.StatusUpdate(name, status))
}

func (c *Client) writeLocked(msg protocol.Message) error {
	select {
	case <-c.done:
		return oops.Code("PEER_CLOSED").Errorf("connection closed")
	default:
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return oops.Wrapf(err, "set write deadline")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg.Frame()); err != nil {
		return oops.With("kind", msg.Kind).Wrapf(err, "failed to send frame")
	}
	return nil
}

// Events returns the decoded frames received from the relay. The channel is
// closed when the connection ends.
func (c *Client) Events() <-chan protocol.Message {
	return c.events
}

// Err returns the error that ended the connection, or nil after a clean close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Close sends a close frame and closes the connection. It is safe to call more
// than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readFailed(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.Decode(string(data))
		if err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		c.observe(msg)

		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) readFailed(err error) {
	select {
	case <-c.done:
		return
	default:
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Debug("server closed the connection", "error", err)
		return
	}
	c.logger.Warn("connection lost", "error", err)
	c.setErr(oops.Code("CONNECTION_LOST").Wrapf(err, "connection lost"))
}

// Run joins under name, then relays lines from in as chat messages or
// commands and writes a rendered line to out for every received frame. It
// returns when in is exhausted, the user types /quit, the connection ends, or
// ctx is cancelled.
func (c *Client) Run(ctx context.Context, name string, in io.Reader, out io.Writer) error {
	if err := c.Join(name); err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-c.done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-c.events:
			if !ok {
				return c.Err()
			}
			if line := Render(msg); line != "" {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return oops.Wrapf(err, "write output")
				}
			}

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return oops.Wrapf(err, "read input")
					}
				default:
				}
				return nil
			}
			quit, err := c.handleInput(line)
			if err != nil {
				if _, werr := fmt.Fprintln(out, err.Error()); werr != nil {
					return oops.Wrapf(werr, "write output")
				}
				continue
			}
			if quit {
				return nil
			}
		}
	}
}

// handleInput acts on one line typed by the user and reports whether to quit.
// Input errors are returned for display and do not end the session.
func (c *Client) handleInput(line string) (bool, error) {
	in, err := ParseInput(line)
	if err != nil {
		return false, err
	}

	switch in.Kind {
	case InputQuit:
		return true, nil
	case InputStatus:
		return false, c.SetStatus(in.Status)
	case InputChat:
		return false, c.Say(in.Text)
	default:
		return false, nil
	}
}
