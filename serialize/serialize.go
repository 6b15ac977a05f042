// Package serialize defines the wire serializer contract external to the
// message codec (spec.md §4.1) and a JSON reference implementation.
// MessagePack is left as a documented extension point: no MessagePack
// library appears anywhere in the example corpus this module was built
// from, so none is fabricated here (see DESIGN.md).
package serialize

import "github.com/gieseladev/aiowamp/wamp"

// Serializer converts between wire bytes and a wamp.Message.
type Serializer interface {
	// Serialize renders msg as bytes. Exactly one message per call.
	Serialize(msg wamp.Message) ([]byte, error)
	// Deserialize parses exactly one message from data.
	Deserialize(data []byte) (wamp.Message, error)
}

// Format identifies a serializer for transport negotiation purposes
// (raw-socket handshake byte, WebSocket subprotocol).
type Format int

const (
	// FormatJSON is serializer code 1 (spec.md §6).
	FormatJSON Format = 1
	// FormatMsgpack is serializer code 2; reserved, no implementation ships
	// in this module (see package doc).
	FormatMsgpack Format = 2
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// WebSocketSubprotocol returns the WAMP websocket subprotocol name for f.
func (f Format) WebSocketSubprotocol() string {
	switch f {
	case FormatJSON:
		return "wamp.2.json"
	case FormatMsgpack:
		return "wamp.2.msgpack"
	default:
		return ""
	}
}

// registry is the process-wide format->factory registry (spec.md §9:
// "message-code->variant and transport-scheme->factory" style registries
// are constructed once; runtime registration must guard duplicate keys).
var registry = map[Format]func() Serializer{
	FormatJSON: func() Serializer { return &JSON{} },
}

// Register adds a constructor for a custom Format. Panics if the format
// already has a registered constructor.
func Register(format Format, factory func() Serializer) {
	if _, exists := registry[format]; exists {
		panic("serialize: duplicate registration for format")
	}
	registry[format] = factory
}

// New constructs the Serializer registered for format, or nil if none is
// registered.
func New(format Format) Serializer {
	factory, ok := registry[format]
	if !ok {
		return nil
	}
	return factory()
}
