// Package server constructs and stops the relay's HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// Only the header read is bounded: WebSocket connections are hijacked and
// manage their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// Hijacked WebSocket connections are not tracked by net/http; the hub closes those.
func ShutdownServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return oops.With("operation", "shutdown_http_server").Wrap(err)
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
