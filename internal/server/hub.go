// Package server coordinates connection registration, the session registry and
// message fan-out for the chat relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/errutil"
	"github.com/Tyrowin/gochat-presence/internal/protocol"
	"github.com/Tyrowin/gochat-presence/internal/session"
)

// Hub owns the session registry and the set of open connections, and fans
// protocol events out to them.
//
// Every event mutates the registry, takes the roster snapshot and builds its
// frames under mu, so two concurrent joins can never produce a roster missing
// either joiner. Frames are delivered after mu is released; deliverMu is taken
// before the release so plans reach recipients in the order they were built.
type Hub struct {
	mu       sync.Mutex
	registry *session.Registry
	peers    map[ulid.ULID]Peer
	closing  bool

	deliverMu sync.Mutex

	logger  *slog.Logger
	metrics *Metrics
	wg      sync.WaitGroup
}

// NewHub creates a Hub. A nil logger uses slog.Default and nil metrics are
// registered on a private registry.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Hub{
		registry: session.NewRegistry(),
		peers:    make(map[ulid.ULID]Peer),
		logger:   logger,
		metrics:  metrics,
	}
}

// Attach registers an open connection. The connection receives every broadcast
// from now on, even before it joins.
func (h *Hub) Attach(p Peer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attachLocked(p)
}

func (h *Hub) attachLocked(p Peer) error {
	if h.closing {
		return oops.Code(CodeHubClosed).
			With("conn_id", p.ID().String()).
			Errorf("hub is shutting down")
	}

	h.peers[p.ID()] = p
	h.metrics.Connections.Set(float64(len(h.peers)))
	h.logger.Debug("connection attached",
		"conn_id", p.ID().String(),
		"addr", p.Addr(),
		"connections", len(h.peers),
	)
	return nil
}

// Start attaches the client and launches its read and write pumps.
func (h *Hub) Start(c *Client) error {
	h.mu.Lock()
	if err := h.attachLocked(c); err != nil {
		h.mu.Unlock()
		return err
	}
	h.wg.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// Detach removes a closed connection. If it had joined, its session is removed
// and LEAVE plus the updated roster are broadcast. Detaching a connection that
// is not attached is a no-op, so transport errors reported more than once only
// clean up once.
func (h *Hub) Detach(p Peer) {
	h.mu.Lock()
	if _, ok := h.peers[p.ID()]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.peers, p.ID())
	h.metrics.Connections.Set(float64(len(h.peers)))

	s, joined := h.registry.Leave(p.ID())
	if !joined {
		h.mu.Unlock()
		h.logger.Debug("connection detached before join", "conn_id", p.ID().String())
		return
	}
	h.metrics.Sessions.Set(float64(h.registry.Len()))

	h.logger.InfoContext(peerContext(p), "session left",
		"conn_id", p.ID().String(),
		"name", s.Name,
		"sessions", h.registry.Len(),
	)
	h.commit(leavePlan(h.peerListLocked(), s.Name, h.registry.Snapshot()))
}

// Execute runs a command produced by session.Dispatch on behalf of p.
func (h *Hub) Execute(p Peer, cmd session.Command) error {
	switch c := cmd.(type) {
	case session.JoinCommand:
		return h.Join(p, c.Name)
	case session.ChatCommand:
		h.Chat(c.Sender, c.Body)
		return nil
	case session.StatusCommand:
		h.SetStatus(c.Name, c.Status)
		return nil
	default:
		return oops.Errorf("unknown command %T", cmd)
	}
}

// Join registers p under name and announces it. A rejected name is reported to
// p alone as a system message and returned as an error; p stays unjoined.
func (h *Hub) Join(p Peer, name string) error {
	h.mu.Lock()
	if _, ok := h.peers[p.ID()]; !ok {
		h.mu.Unlock()
		return oops.Code(CodePeerClosed).
			With("conn_id", p.ID().String()).
			Errorf("connection is not attached")
	}

	s, err := h.registry.Join(p.ID(), name)
	if err != nil {
		h.commit(noticePlan(p, errutil.Message(err)))
		return err
	}
	h.metrics.Sessions.Set(float64(h.registry.Len()))

	h.logger.InfoContext(peerContext(p), "session joined",
		"conn_id", p.ID().String(),
		"addr", p.Addr(),
		"name", s.Name,
		"sessions", h.registry.Len(),
	)
	h.commit(joinPlan(p, h.peerListLocked(), s.Name, h.registry.Snapshot()))
	return nil
}

// Chat relays body from sender to every connection, verbatim.
func (h *Hub) Chat(sender, body string) {
	h.mu.Lock()
	h.logger.Debug("relaying chat message", "sender", sender, "bytes", len(body))
	h.commit(chatPlan(h.peerListLocked(), sender, body))
}

// SetStatus updates the named session's status and broadcasts it. Unknown names
// are ignored without a broadcast; it reports whether the status was applied.
func (h *Hub) SetStatus(name string, status protocol.Status) bool {
	h.mu.Lock()
	if !h.registry.SetStatus(name, status) {
		h.mu.Unlock()
		h.logger.Debug("status update for unknown name ignored", "name", name, "status", status)
		return false
	}

	h.logger.Info("status changed", "name", name, "status", status)
	h.commit(statusPlan(h.peerListLocked(), name, status))
	return true
}

// Snapshot returns the current roster in join order.
func (h *Hub) Snapshot() []protocol.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Snapshot()
}

// Lookup returns the session of a connection, if it has joined.
func (h *Hub) Lookup(connID ulid.ULID) (session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Lookup(connID)
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// SessionCount returns the number of joined sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// peerContext returns the logging context of p, if it has one.
func peerContext(p Peer) context.Context {
	if cp, ok := p.(interface{ Context() context.Context }); ok {
		return cp.Context()
	}
	return context.Background()
}

// peerListLocked copies the attached connections. Callers hold mu.
func (h *Hub) peerListLocked() []Peer {
	peers := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}

// commit delivers p after releasing mu, which the caller must hold.
func (h *Hub) commit(p plan) {
	h.deliverMu.Lock()
	h.mu.Unlock()
	defer h.deliverMu.Unlock()
	h.deliver(p)
}

// deliver sends every frame of p. A recipient that fails is skipped for the
// rest of the plan; other recipients are unaffected.
func (h *Hub) deliver(p plan) {
	var failed map[ulid.ULID]struct{}

	for _, d := range p {
		frame := d.msg.Frame()
		kind := string(d.msg.Kind)

		for _, peer := range d.to {
			if _, skip := failed[peer.ID()]; skip {
				continue
			}
			if err := peer.Send(frame); err != nil {
				if failed == nil {
					failed = make(map[ulid.ULID]struct{})
				}
				failed[peer.ID()] = struct{}{}
				h.sendFailed(peer, kind, err)
				continue
			}
			h.metrics.FramesSent.WithLabelValues(kind).Inc()
		}
	}
}

// sendFailed records a failed delivery. A full send buffer means the client is
// not keeping up; it is disconnected, which triggers its own cleanup.
func (h *Hub) sendFailed(peer Peer, kind string, err error) {
	code := errutil.Code(err)
	if code == "" {
		code = "unknown"
	}
	h.metrics.SendFailures.WithLabelValues(code).Inc()

	level := slog.LevelWarn
	if code == CodePeerClosed {
		level = slog.LevelDebug
	}
	errutil.Log(peerContext(peer), h.logger, level, "dropping frame for recipient", err,
		"conn_id", peer.ID().String(),
		"addr", peer.Addr(),
		"kind", kind,
	)

	if code == CodeSendBufferFull {
		if closeErr := peer.Close(); closeErr != nil && !isExpectedCloseError(closeErr) {
			h.logger.Debug("error closing slow connection", "conn_id", peer.ID().String(), "error", closeErr)
		}
	}
}

// Shutdown closes every connection and waits for the client pumps to finish or
// for ctx to expire. New connections are refused once Shutdown starts.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info("initiating hub shutdown")

	h.mu.Lock()
	h.closing = true
	peers := h.peerListLocked()
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Debug("error closing connection",
				"conn_id", p.ID().String(),
				"addr", p.Addr(),
				"error", err,
			)
		}
	}
	h.logger.Info("closed client connections", "count", len(peers))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out, some connections may still be running")
		return oops.With("operation", "hub_shutdown").Wrap(ctx.Err())
	}
}
