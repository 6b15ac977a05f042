package wamp

import "fmt"

// InvalidMessage is returned by Decode when a wire list is not a
// well-formed WAMP message: unknown type code, or an arity that doesn't
// match the variant registered for that code (spec.md §4.1, §7).
type InvalidMessage struct {
	Reason string
}

func (e *InvalidMessage) Error() string { return "invalid message: " + e.Reason }

// UnexpectedMessage is the InvalidMessage subkind for a well-formed WAMP
// message that isn't permitted at the point it was received (spec.md §7).
type UnexpectedMessage struct {
	Received Message
	Expected MessageType
}

func (e *UnexpectedMessage) Error() string {
	return fmt.Sprintf("received %s but expected %s", e.Received.Type(), e.Expected)
}

// TransportError is an I/O failure, framing violation, or handshake
// rejection at the transport layer (spec.md §7).
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "transport error: " + e.Reason + ": " + e.Err.Error()
	}
	return "transport error: " + e.Reason
}

func (e *TransportError) Unwrap() error { return e.Err }

// AbortError is returned when the router sends ABORT during join.
type AbortError struct {
	Reason  string
	Details Dict
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("abort: %s (details = %v)", e.Reason, e.Details)
}

// AuthError is returned when the auth plug-in rejects a CHALLENGE, or no
// plug-in matches the challenge's auth method.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth error: " + e.Reason }

// ClientClosed is returned to every pending waiter when the client is
// closed while the operation was still in flight (spec.md §4.5, §7).
type ClientClosed struct{}

func (e *ClientClosed) Error() string { return "client closed" }

// ErrorResponse wraps a wire Error message. Construct via NewErrorResponse
// to get the most specific registered subclass for the message's URI.
type ErrorResponse struct {
	Message Error
}

func (e *ErrorResponse) Error() string {
	s := e.Message.URI
	if len(e.Message.Args) > 0 {
		s += fmt.Sprintf(" %v", []interface{}(e.Message.Args))
	}
	if len(e.Message.Kwargs) > 0 {
		s += fmt.Sprintf(" (%v)", map[string]interface{}(e.Message.Kwargs))
	}
	return s
}

// URI returns the error URI carried by the underlying message.
func (e *ErrorResponse) URI() string { return e.Message.URI }

// IsCanceled reports whether this error response is the router's reply to
// a CANCEL (wamp.error.canceled). The client's call path does not consult
// it: Call.Cancel discards whatever final reply arrives.
func (e *ErrorResponse) IsCanceled() bool { return e.Message.URI == ErrCanceled }

// errorResponseFactory lets callers register a constructor for a specific
// error URI, analogous to the Python original's class registry
// (spec.md §7: "Subclasses are selected from a URI→class registry").
type errorResponseFactory func(Error) error

var errorResponseRegistry = map[string]errorResponseFactory{}

// RegisterErrorResponse associates a URI with a constructor that produces a
// more specific error type than the base ErrorResponse. Re-registering an
// already-registered URI panics, matching the "guarded against duplicate
// keys" rule for the core's process-wide registries (spec.md §9).
func RegisterErrorResponse(uri string, factory errorResponseFactory) {
	if _, exists := errorResponseRegistry[uri]; exists {
		panic("wamp: duplicate error response registration for " + uri)
	}
	errorResponseRegistry[uri] = factory
}

// NewErrorResponse builds the most specific registered error for msg's URI,
// falling back to the base ErrorResponse for unknown URIs.
func NewErrorResponse(msg Error) error {
	if factory, ok := errorResponseRegistry[msg.URI]; ok {
		return factory(msg)
	}
	return &ErrorResponse{Message: msg}
}
