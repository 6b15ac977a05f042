// Package transport implements the two WAMP transport variants this
// client understands: raw-socket (length-prefixed framing over a plain
// TCP socket; no TLS) and WebSocket (subprotocol-negotiated framed messages).
// Both satisfy the same Transport contract (spec.md §4.2).
package transport

import (
	"github.com/gieseladev/aiowamp/serialize"
	"github.com/gieseladev/aiowamp/wamp"
)

// Transport is a framed, bidirectional, single-message-at-a-time channel
// carrying WAMP messages. Close is idempotent; Send/Recv after Close fail.
type Transport interface {
	// Send serializes and writes exactly one message, then flushes.
	Send(msg wamp.Message) error
	// Recv blocks until one complete message is available.
	Recv() (wamp.Message, error)
	// Close closes the transport. Safe to call more than once.
	Close() error
}

// Dialer opens a Transport to routerURL using serializer format f.
type Dialer interface {
	Dial(routerURL string, f serialize.Format) (Transport, error)
}
