// Package server implements the relay side of the chat protocol over WebSocket.
//
// The implementation is organized into specialized files for the hub (session
// registry ownership and fan-out), clients (per-connection pumps and protocol
// state), routing, HTTP handlers, origin checks, rate limiting and metrics.
// Protocol framing lives in package protocol and session bookkeeping in package
// session; this package ties them to live connections.
package server
