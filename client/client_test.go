package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gieseladev/aiowamp/session"
	"github.com/gieseladev/aiowamp/wamp"
)

// memTransport is an in-memory transport.Transport double, mirroring
// session/session_test.go's double so the multiplexer can be exercised
// end to end without a real socket.
type memTransport struct {
	toClient   chan wamp.Message
	fromClient chan wamp.Message
	closed     chan struct{}
}

func newMemTransportPair() (*memTransport, *memTransport) {
	a := make(chan wamp.Message, 16)
	b := make(chan wamp.Message, 16)
	client := &memTransport{toClient: a, fromClient: b, closed: make(chan struct{})}
	router := &memTransport{toClient: b, fromClient: a, closed: make(chan struct{})}
	return client, router
}

func (m *memTransport) Send(msg wamp.Message) error {
	select {
	case m.fromClient <- msg:
		return nil
	case <-m.closed:
		return errors.New("transport closed")
	}
}

func (m *memTransport) Recv() (wamp.Message, error) {
	select {
	case msg := <-m.toClient:
		return msg, nil
	case <-m.closed:
		return nil, errors.New("transport closed")
	}
}

func (m *memTransport) Close() error {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

func newTestClient(t *testing.T) (*Client, *memTransport) {
	t.Helper()
	clientTransport, router := newMemTransportPair()

	go func() {
		router.Recv()
		router.Send(wamp.Welcome{SessionID: 1, Details: wamp.Dict{}})
	}()

	sess, err := session.Join(clientTransport, "realm1", session.JoinOptions{})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	return New(sess, ClientOptions{}), router
}

func TestClientCallRoundTrip(t *testing.T) {
	c, router := newTestClient(t)

	go func() {
		msg, err := router.Recv()
		if err != nil {
			return
		}
		call := msg.(wamp.Call)
		router.Send(wamp.Result{RequestID: call.RequestID, Args: wamp.List{"pong"}})
	}()

	result, err := c.Call("test.echo", wamp.List{"ping"}, nil, CallOptions{}).Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Args[0] != "pong" {
		t.Errorf("unexpected result: %#v", result.Args)
	}
}

func TestClientSubscribeAndEvent(t *testing.T) {
	c, router := newTestClient(t)

	go func() {
		msg, _ := router.Recv()
		sub := msg.(wamp.Subscribe)
		router.Send(wamp.Subscribed{RequestID: sub.RequestID, SubscriptionID: 55})
	}()

	events := make(chan wamp.Event, 1)
	subID, err := c.Subscribe("test.topic", func(e wamp.Event) { events <- e }, SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if subID != 55 {
		t.Fatalf("expected subscription id 55, got %d", subID)
	}

	router.Send(wamp.Event{SubscriptionID: 55, PublicationID: 1, Details: wamp.Dict{}, Args: wamp.List{"hi"}})

	select {
	case e := <-events:
		if e.Args[0] != "hi" {
			t.Errorf("unexpected event args: %#v", e.Args)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestClientRegisterAndInvoke(t *testing.T) {
	c, router := newTestClient(t)

	go func() {
		msg, _ := router.Recv()
		reg := msg.(wamp.Register)
		router.Send(wamp.Registered{RequestID: reg.RequestID, RegistrationID: 77})
	}()

	handler := HandlerFunc(func(ctx context.Context, inv *Invocation) (interface{}, error) {
		return inv.Args()[0], nil
	})
	regID, err := c.Register("test.proc", handler, RegisterOptions{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if regID != 77 {
		t.Fatalf("expected registration id 77, got %d", regID)
	}

	router.Send(wamp.Invocation{RequestID: 1, RegistrationID: 77, Details: wamp.Dict{}, Args: wamp.List{"hello"}})

	reply, err := router.Recv()
	if err != nil {
		t.Fatalf("router recv: %v", err)
	}
	yield := reply.(wamp.Yield)
	if yield.Args[0] != "hello" {
		t.Errorf("unexpected yield args: %#v", yield.Args)
	}
}

func TestClientCloseFailsPendingCalls(t *testing.T) {
	c, router := newTestClient(t)

	call := c.Call("test.never_replies", nil, nil, CallOptions{})
	go call.sendIfNeeded()

	done := make(chan error, 1)
	go func() {
		_, err := call.Result()
		done <- err
	}()

	// Drain the CALL and echo the GOODBYE close sends, so session.Close
	// unblocks the way TestLocalInitiatedClose expects in session/.
	go func() {
		router.Recv()
		msg, err := router.Recv()
		if err != nil {
			return
		}
		if gb, ok := msg.(wamp.Goodbye); ok {
			router.Send(wamp.Goodbye{Details: wamp.Dict{}, Reason: gb.Reason})
		}
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close("")

	select {
	case err := <-done:
		var clientClosed *wamp.ClientClosed
		if !errors.As(err, &clientClosed) {
			t.Errorf("expected ClientClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for call to fail after close")
	}
}
