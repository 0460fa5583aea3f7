package server

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newConnID generates a connection identifier. IDs sort by creation time.
func newConnID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// connContext returns a context carrying a span context for the connection.
// The trace ID is the connection ULID and the span ID its random tail, so log
// records stamped with trace_id map back to conn_id.
func connContext(id ulid.ULID) context.Context {
	var spanID trace.SpanID
	copy(spanID[:], id[8:])
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(id),
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}
