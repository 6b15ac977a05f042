package serialize

import (
	"reflect"
	"testing"

	"github.com/gieseladev/aiowamp/wamp"
)

func TestJSONRoundTrip(t *testing.T) {
	s := JSON{}
	msg := wamp.Call{
		RequestID: 1,
		Options:   wamp.Dict{},
		Procedure: "io.giesela.add",
		Args:      wamp.List{int64(1), int64(3)},
		Kwargs:    wamp.Dict{"iterations": int64(3)},
	}

	data, err := s.Serialize(msg)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	decoded, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	call, ok := decoded.(wamp.Call)
	if !ok {
		t.Fatalf("expected wamp.Call, got %T", decoded)
	}
	if call.Procedure != msg.Procedure || call.RequestID != msg.RequestID {
		t.Errorf("round-trip mismatch: %#v", call)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
}

func TestJSONBlobTunneling(t *testing.T) {
	s := JSON{}
	msg := wamp.Call{
		RequestID: 1,
		Options:   wamp.Dict{},
		Procedure: "io.giesela.upload",
		Args:      wamp.List{wamp.Blob("hello")},
	}

	data, err := s.Serialize(msg)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	decoded, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	call := decoded.(wamp.Call)
	blob, ok := call.Args[0].(wamp.Blob)
	if !ok {
		t.Fatalf("expected wamp.Blob, got %T", call.Args[0])
	}
	if !reflect.DeepEqual([]byte(blob), []byte("hello")) {
		t.Errorf("blob mismatch: %q", blob)
	}
}

func TestNewUnregisteredFormat(t *testing.T) {
	if New(Format(99)) != nil {
		t.Error("expected nil for unregistered format")
	}
}
