package wamp

import (
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		Hello{Realm: "realm1", Details: Dict{"roles": Dict{}}},
		Welcome{SessionID: 42, Details: Dict{"agent": "test"}},
		Abort{Details: Dict{}, Reason: "wamp.error.no_such_realm"},
		Challenge{AuthMethod: "ticket", Extra: Dict{}},
		Authenticate{Signature: "sig", Extra: Dict{}},
		Goodbye{Details: Dict{}, Reason: CloseGoodbyeAndOut},
		Error{RequestType: TypeCall, RequestID: 1, Details: Dict{}, URI: ErrNoSuchProcedure},
		Error{RequestType: TypeCall, RequestID: 1, Details: Dict{}, URI: ErrInvalidArgument, Args: List{"bad"}, Kwargs: Dict{"why": "x"}},
		Publish{RequestID: 1, Options: Dict{}, Topic: "io.giesela.add"},
		Publish{RequestID: 1, Options: Dict{}, Topic: "io.giesela.add", Args: List{1, 2}},
		Published{RequestID: 1, PublicationID: 2},
		Subscribe{RequestID: 1, Options: Dict{}, Topic: "io.giesela.add"},
		Subscribed{RequestID: 1, SubscriptionID: 2},
		Unsubscribe{RequestID: 1, SubscriptionID: 2},
		Unsubscribed{RequestID: 1},
		Event{SubscriptionID: 1, PublicationID: 2, Details: Dict{}},
		Call{RequestID: 1, Options: Dict{}, Procedure: "io.giesela.add", Args: List{1, 3}},
		Cancel{RequestID: 1, Options: Dict{"mode": "killnowait"}},
		Result{RequestID: 1, Details: Dict{}, Args: List{4}},
		Register{RequestID: 1, Options: Dict{}, Procedure: "io.giesela.add"},
		Registered{RequestID: 1, RegistrationID: 2},
		Unregister{RequestID: 1, RegistrationID: 2},
		Unregistered{RequestID: 1},
		Invocation{RequestID: 1, RegistrationID: 2, Details: Dict{}},
		Interrupt{RequestID: 1, Options: Dict{}},
		Yield{RequestID: 1, Options: Dict{}, Args: List{4}},
	}

	for _, m := range cases {
		encoded := Encode(m)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode(%v): %v", m, err)
		}
		if !reflect.DeepEqual(decoded, m) {
			t.Errorf("round-trip mismatch: got %#v, want %#v", decoded, m)
		}
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode(List{int64(999)})
	if err == nil {
		t.Fatal("expected error for unknown message type")
	}
}

func TestDecodeRejectsBadArity(t *testing.T) {
	_, err := Decode(List{TypeHello, "realm1"})
	if err == nil {
		t.Fatal("expected error for wrong arity")
	}
}

func TestResultIsProgress(t *testing.T) {
	r := Result{RequestID: 1, Details: Dict{"progress": true}, Args: List{0}}
	if !r.IsProgress() {
		t.Error("expected progress result")
	}
	final := Result{RequestID: 1, Details: Dict{}, Args: List{1}}
	if final.IsProgress() {
		t.Error("expected non-progress result")
	}
}
