// Package server constructs the chat relay: one Server value owns the hub,
// metrics registry, origin policy and HTTP listener for a process.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/config"
)

// Server is the relay's context value. Independent Servers share no state.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	hub      *Hub
	metrics  *Metrics
	registry *prometheus.Registry
	origins  *originPolicy
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	listener net.Listener
}

// New creates a Server from cfg. A nil logger uses slog.Default.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Sanitize()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := NewMetrics(registry)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		hub:      NewHub(logger, metrics),
		metrics:  metrics,
		registry: registry,
		origins:  newOriginPolicy(cfg.AllowedOrigins, logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the address the server is listening on, or the empty string
// before Run has bound its listener.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down the HTTP server and the hub within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", s.cfg.Addr).Wrapf(err, "failed to listen")
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	httpServer := CreateServer(s.cfg.Addr, SetupRoutes(s))

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	s.logger.Info("chat relay listening", "addr", listener.Addr().String())

	select {
	case <-ctx.Done():
	case serveErr := <-errCh:
		if serveErr != nil {
			return oops.With("addr", s.cfg.Addr).Wrapf(serveErr, "http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	httpErr := ShutdownServer(shutdownCtx, httpServer, s.logger)
	hubErr := s.hub.Shutdown(shutdownCtx)
	return errors.Join(httpErr, hubErr)
}
