// Package session implements realm-joining and the GOODBYE close
// handshake on top of a transport.Transport, grounded on
// original_source/aiowamp/session.py (the Session type) and
// original_source/aiowamp/client/conn.py (join_realm's HELLO/CHALLENGE/
// WELCOME/ABORT flow), adapted to Go's explicit state machine idiom the
// way go-server-3/internal/session/hub.go tracks connection lifecycle
// with atomics and a sync.Once close.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gieseladev/aiowamp/auth"
	"github.com/gieseladev/aiowamp/transport"
	"github.com/gieseladev/aiowamp/wamp"
)

// State is the session lifecycle state (spec.md §5).
type State int32

const (
	StateJoining State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is an established WAMP session over a transport.Transport.
type Session struct {
	transport transport.Transport
	id        uint64
	realm     string
	details   wamp.Dict
	logger    *zap.Logger

	state       int32 // atomic State
	closeOnce   sync.Once
	closeWaiter chan struct{}
}

// JoinOptions configures Join.
type JoinOptions struct {
	Keyring *auth.Keyring
	Roles   wamp.Dict
	Details wamp.Dict
	Logger  *zap.Logger
}

// Join performs the HELLO/(CHALLENGE/AUTHENTICATE)?/WELCOME handshake over
// an already-connected transport, mirroring join_realm in
// original_source/aiowamp/client/conn.py.
func Join(t transport.Transport, realm string, opts JoinOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	details := wamp.Dict{}
	for k, v := range opts.Details {
		details[k] = v
	}

	if opts.Keyring != nil {
		methods := opts.Keyring.AuthMethods()
		authMethods := make(wamp.List, len(methods))
		for i, m := range methods {
			authMethods[i] = m
		}
		details["authmethods"] = authMethods

		if authID := opts.Keyring.AuthID(); authID != "" {
			details["authid"] = authID
		}
		if extra := opts.Keyring.AuthExtra(); extra != nil {
			details["authextra"] = extra
		}
	}

	if opts.Roles != nil {
		details["roles"] = opts.Roles
	}

	if err := t.Send(wamp.Hello{Realm: realm, Details: details}); err != nil {
		return nil, fmt.Errorf("session: send HELLO: %w", err)
	}

	msg, err := t.Recv()
	if err != nil {
		return nil, fmt.Errorf("session: recv after HELLO: %w", err)
	}

	var welcome wamp.Welcome
	switch m := msg.(type) {
	case wamp.Welcome:
		welcome = m
	case wamp.Abort:
		return nil, &wamp.AbortError{Reason: m.Reason, Details: m.Details}
	case wamp.Challenge:
		if opts.Keyring == nil {
			return nil, &wamp.AuthError{Reason: fmt.Sprintf("received CHALLENGE with no keyring configured: %v", m)}
		}
		welcome, err = authenticate(t, m, opts.Keyring, logger)
		if err != nil {
			return nil, err
		}
		if err := opts.Keyring.CheckWelcome(m.AuthMethod, welcome); err != nil {
			logger.Warn("welcome check failed, closing", zap.Error(err))
			t.Close()
			return nil, &wamp.AuthError{Reason: fmt.Sprintf("welcome check failed: %v", err)}
		}
	default:
		return nil, &wamp.UnexpectedMessage{Received: msg, Expected: wamp.TypeWelcome}
	}

	s := &Session{
		transport:   t,
		id:          welcome.SessionID,
		realm:       realm,
		details:     welcome.Details,
		logger:      logger,
		closeWaiter: make(chan struct{}),
	}
	atomic.StoreInt32(&s.state, int32(StateEstablished))
	return s, nil
}

// authenticate runs the CHALLENGE/AUTHENTICATE exchange, mirroring
// original_source/aiowamp/client/conn.py's _authenticate.
func authenticate(t transport.Transport, challenge wamp.Challenge, keyring *auth.Keyring, logger *zap.Logger) (wamp.Welcome, error) {
	resp, err := keyring.Authenticate(challenge)
	if err != nil {
		logger.Warn("authentication failed, aborting", zap.Error(err))
		t.Send(wamp.Abort{Details: wamp.Dict{"error": err.Error()}, Reason: wamp.ErrAuthorizationFailed})
		t.Close()
		return wamp.Welcome{}, &wamp.AuthError{Reason: fmt.Sprintf("authentication aborted: %v", err)}
	}

	if err := t.Send(resp); err != nil {
		return wamp.Welcome{}, fmt.Errorf("session: send AUTHENTICATE: %w", err)
	}

	msg, err := t.Recv()
	if err != nil {
		return wamp.Welcome{}, fmt.Errorf("session: recv after AUTHENTICATE: %w", err)
	}
	switch m := msg.(type) {
	case wamp.Welcome:
		return m, nil
	case wamp.Abort:
		return wamp.Welcome{}, &wamp.AbortError{Reason: m.Reason, Details: m.Details}
	default:
		return wamp.Welcome{}, &wamp.UnexpectedMessage{Received: msg, Expected: wamp.TypeWelcome}
	}
}

// ID is the session_id assigned by the router.
func (s *Session) ID() uint64 { return s.id }

// Realm is the realm this session joined.
func (s *Session) Realm() string { return s.realm }

// Details is WELCOME.details, as sent by the router.
func (s *Session) Details() wamp.Dict { return s.details }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(atomic.LoadInt32(&s.state)) }

// Send writes msg to the transport. Returns an error once the session has
// left StateEstablished.
func (s *Session) Send(msg wamp.Message) error {
	if s.State() != StateEstablished {
		return &wamp.ClientClosed{}
	}
	return s.transport.Send(msg)
}

// Recv reads the next message from the transport. Callers must run this
// from a single goroutine (spec.md §5's single-observer receive loop);
// Session itself does not fan messages out.
func (s *Session) Recv() (wamp.Message, error) {
	return s.transport.Recv()
}

// Close initiates (or completes) the GOODBYE handshake and closes the
// underlying transport. Safe to call more than once.
//
// If the session is StateEstablished, this is a local-initiated close: it
// sends GOODBYE and returns once the owning receive loop reports the
// router's confirming GOODBYE via HandleIncomingGoodbye, or immediately if
// the transport is already gone.
func (s *Session) Close(reason string) error {
	var closeErr error
	s.closeOnce.Do(func() {
		if atomic.CompareAndSwapInt32(&s.state, int32(StateEstablished), int32(StateClosing)) {
			if reason == "" {
				reason = wamp.CloseNormal
			}
			if err := s.transport.Send(wamp.Goodbye{Details: wamp.Dict{}, Reason: reason}); err != nil {
				s.logger.Warn("session: failed to send GOODBYE", zap.Error(err))
			} else {
				<-s.closeWaiter
			}
		}
		atomic.StoreInt32(&s.state, int32(StateClosed))
		closeErr = s.transport.Close()
	})
	return closeErr
}

// HandleIncomingGoodbye processes a GOODBYE message observed by the
// session's receive loop, implementing the two-sided handshake (spec.md
// §4.3): a GOODBYE arriving while StateEstablished with a reason other
// than goodbye_and_out is remote-initiated, so it is echoed back here with
// wamp.close.goodbye_and_out and the session moves straight to
// StateClosed; a GOODBYE arriving while StateClosing is the router's
// confirmation of our own close and unblocks Close. A confirmation GOODBYE
// (reason goodbye_and_out) arriving while StateEstablished, or any GOODBYE
// arriving in any other state, is a protocol violation and is logged, not
// acted on.
func (s *Session) HandleIncomingGoodbye(msg wamp.Goodbye) {
	switch State(atomic.LoadInt32(&s.state)) {
	case StateEstablished:
		if msg.Reason == wamp.CloseGoodbyeAndOut {
			s.logger.Warn("session: confirmation GOODBYE received while established",
				zap.String("reason", msg.Reason))
			return
		}
		atomic.StoreInt32(&s.state, int32(StateClosed))
		if err := s.transport.Send(wamp.Goodbye{Details: wamp.Dict{}, Reason: wamp.CloseGoodbyeAndOut}); err != nil {
			s.logger.Warn("session: failed to echo GOODBYE", zap.Error(err))
		}
	case StateClosing:
		select {
		case <-s.closeWaiter:
		default:
			close(s.closeWaiter)
		}
	default:
		s.logger.Warn("session: GOODBYE received outside an active handshake",
			zap.String("state", s.State().String()), zap.String("reason", msg.Reason))
	}
}
