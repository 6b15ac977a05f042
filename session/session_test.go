package session

import (
	"errors"
	"testing"

	"github.com/gieseladev/aiowamp/auth"
	"github.com/gieseladev/aiowamp/wamp"
)

// memTransport is an in-memory transport.Transport double driving both
// sides of a handshake without a real socket.
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

func TestJoinWelcomeNoAuth(t *testing.T) {
	client, router := newMemTransportPair()

	go func() {
		msg, err := router.Recv()
		if err != nil {
			t.Errorf("router recv: %v", err)
			return
		}
		hello, ok := msg.(wamp.Hello)
		if !ok || hello.Realm != "realm1" {
			t.Errorf("expected Hello(realm1), got %#v", msg)
			return
		}
		router.Send(wamp.Welcome{SessionID: 7, Details: wamp.Dict{"foo": "bar"}})
	}()

	s, err := Join(client, "realm1", JoinOptions{})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s.ID() != 7 || s.Realm() != "realm1" || s.State() != StateEstablished {
		t.Errorf("unexpected session: id=%d realm=%s state=%s", s.ID(), s.Realm(), s.State())
	}
}

func TestJoinAbort(t *testing.T) {
	client, router := newMemTransportPair()

	go func() {
		router.Recv()
		router.Send(wamp.Abort{Details: wamp.Dict{}, Reason: wamp.ErrNoSuchRealm})
	}()

	_, err := Join(client, "realm1", JoinOptions{})
	var abortErr *wamp.AbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("expected AbortError, got %v", err)
	}
}

func TestJoinWithTicketAuth(t *testing.T) {
	client, router := newMemTransportPair()
	keyring, err := auth.NewKeyring("alice", auth.TicketAuth{Ticket: "s3cr3t"})
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}

	go func() {
		msg, _ := router.Recv()
		hello := msg.(wamp.Hello)
		if hello.Details["authid"] != "alice" {
			t.Errorf("expected authid alice, got %v", hello.Details["authid"])
		}
		router.Send(wamp.Challenge{AuthMethod: "ticket", Extra: wamp.Dict{}})

		authMsg, _ := router.Recv()
		a := authMsg.(wamp.Authenticate)
		if a.Signature != "s3cr3t" {
			t.Errorf("expected ticket signature, got %q", a.Signature)
			return
		}
		router.Send(wamp.Welcome{SessionID: 9, Details: wamp.Dict{}})
	}()

	s, err := Join(client, "realm1", JoinOptions{Keyring: keyring})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s.ID() != 9 {
		t.Errorf("expected session id 9, got %d", s.ID())
	}
}

func TestLocalInitiatedClose(t *testing.T) {
	client, router := newMemTransportPair()
	go func() {
		router.Recv()
		router.Send(wamp.Welcome{SessionID: 1, Details: wamp.Dict{}})
	}()
	s, err := Join(client, "realm1", JoinOptions{})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	done := make(chan struct{})
	go func() {
		msg, err := router.Recv()
		if err != nil {
			return
		}
		if gb, ok := msg.(wamp.Goodbye); ok {
			s.HandleIncomingGoodbye(wamp.Goodbye{Reason: gb.Reason})
		}
		close(done)
	}()

	if err := s.Close(""); err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-done
	if s.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", s.State())
	}
}

func TestRemoteInitiatedClose(t *testing.T) {
	client, router := newMemTransportPair()
	go func() {
		router.Recv()
		router.Send(wamp.Welcome{SessionID: 1, Details: wamp.Dict{}})
	}()
	s, err := Join(client, "realm1", JoinOptions{})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	router.Send(wamp.Goodbye{Details: wamp.Dict{}, Reason: wamp.CloseSystemShutdown})
	msg, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	gb := msg.(wamp.Goodbye)
	s.HandleIncomingGoodbye(gb)

	if s.State() != StateClosed {
		t.Errorf("expected StateClosed after remote goodbye, got %s", s.State())
	}

	reply, err := router.Recv()
	if err != nil {
		t.Fatalf("router recv reply: %v", err)
	}
	if g, ok := reply.(wamp.Goodbye); !ok || g.Reason != wamp.CloseGoodbyeAndOut {
		t.Errorf("expected goodbye_and_out reply, got %#v", reply)
	}
}
