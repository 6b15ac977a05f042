// Package auth implements the client-side half of the WAMP-CRA and Ticket
// authentication methods, an advertise-only SCRAM method whose
// Authenticate always fails, and the keyring that multiplexes between
// them during the HELLO/CHALLENGE/AUTHENTICATE handshake (spec.md §5,
// grounded on original_source/aiowamp/client/auth.py).
package auth

import (
	"fmt"

	"github.com/gieseladev/aiowamp/wamp"
)

// Method is a single authentication method the client offers the router.
type Method interface {
	// MethodName is the wire name sent in HELLO.details.authmethods
	// (e.g. "wampcra", "ticket", "wamp-scram").
	MethodName() string
	// RequiresAuthID reports whether this method can only be used together
	// with an explicit authid.
	RequiresAuthID() bool
	// AuthExtra contributes entries to HELLO.details.authextra. May be nil.
	AuthExtra() wamp.Dict
	// Authenticate computes the AUTHENTICATE response to a CHALLENGE of
	// this method's type.
	Authenticate(challenge wamp.Challenge) (wamp.Authenticate, error)
	// CheckWelcome validates the router's WELCOME once it arrives, the
	// client-side counterpart of Authenticate (spec.md §4.4's "check_welcome
	// (welcome) → Ok | AuthError"). Methods with nothing to verify return
	// nil.
	CheckWelcome(welcome wamp.Welcome) error
}

// Keyring holds the set of authentication methods offered for a session
// and validates them at construction time the way
// original_source/aiowamp/client/auth.py's AuthKeyring.__init__ does:
// method names must be unique, methods that require an auth_id need one
// supplied, and methods must not disagree about a shared auth_extra key.
type Keyring struct {
	methods   map[string]Method
	order     []string
	authID    string
	authExtra wamp.Dict
}

// NewKeyring builds a Keyring from methods, validating the constraints
// above. authID may be empty if no supplied method requires one.
func NewKeyring(authID string, methods ...Method) (*Keyring, error) {
	k := &Keyring{
		methods: make(map[string]Method, len(methods)),
		authID:  authID,
	}

	extra := wamp.Dict{}
	for _, m := range methods {
		name := m.MethodName()
		if _, exists := k.methods[name]; exists {
			return nil, fmt.Errorf("auth: received same auth method multiple times: %s", name)
		}
		if authID == "" && m.RequiresAuthID() {
			return nil, fmt.Errorf("auth: method %s requires an auth_id", name)
		}

		k.methods[name] = m
		k.order = append(k.order, name)

		for key, value := range m.AuthExtra() {
			if existing, ok := extra[key]; ok && existing != value {
				return nil, fmt.Errorf("auth: method %s provides auth_extra %s=%v, "+
					"but the key is already set by another method as %v", name, key, value, existing)
			}
			extra[key] = value
		}
	}

	if len(extra) > 0 {
		k.authExtra = extra
	}
	return k, nil
}

// AuthID returns the configured auth_id, or "" if none was supplied.
func (k *Keyring) AuthID() string { return k.authID }

// AuthExtra returns the merged auth_extra contributed by all methods, or
// nil if none contributed any.
func (k *Keyring) AuthExtra() wamp.Dict { return k.authExtra }

// AuthMethods returns the wire names of all configured methods, in the
// order they were supplied.
func (k *Keyring) AuthMethods() []string {
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}

// Len reports the number of configured methods.
func (k *Keyring) Len() int { return len(k.methods) }

// Authenticate dispatches challenge to the method it names, returning an
// error if the router challenges a method the keyring was not configured
// with.
func (k *Keyring) Authenticate(challenge wamp.Challenge) (wamp.Authenticate, error) {
	m, ok := k.methods[challenge.AuthMethod]
	if !ok {
		return wamp.Authenticate{}, fmt.Errorf("auth: router challenged unsupported method %q", challenge.AuthMethod)
	}
	return m.Authenticate(challenge)
}

// CheckWelcome dispatches welcome to the method named methodName for
// validation, mirroring Authenticate's dispatch-by-name.
func (k *Keyring) CheckWelcome(methodName string, welcome wamp.Welcome) error {
	m, ok := k.methods[methodName]
	if !ok {
		return fmt.Errorf("auth: no method configured for %q to check welcome", methodName)
	}
	return m.CheckWelcome(welcome)
}
