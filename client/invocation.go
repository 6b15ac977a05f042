package client

import (
	"fmt"
	"sync"

	"github.com/gieseladev/aiowamp/wamp"
)

// InvocationResult is the (args, kwargs, details) triple a handler
// explicitly constructs when it needs keyword arguments or extra YIELD
// details; returning this bypasses the positional-only normalization
// rules (spec.md §4.6).
type InvocationResult struct {
	Args    wamp.List
	Kwargs  wamp.Dict
	Details wamp.Dict
}

// normalizeResult implements spec.md §4.6's priority list for mapping a
// handler's return value to (args, kwargs, details): nil -> empty;
// InvocationResult -> its fields verbatim; []interface{} -> unpacked as
// positional args; anything else -> a single positional arg. Keyword
// arguments only ever come from an explicit InvocationResult.
func normalizeResult(v interface{}) (wamp.List, wamp.Dict, wamp.Dict) {
	switch val := v.(type) {
	case nil:
		return nil, nil, nil
	case InvocationResult:
		return val.Args, val.Kwargs, val.Details
	case []interface{}:
		return wamp.List(val), nil, nil
	case wamp.List:
		return val, nil, nil
	default:
		return wamp.List{val}, nil, nil
	}
}

// Invocation is the callee-side materialization of an RPC call, grounded
// on original_source/aiowamp/client/invocation.py.
type Invocation struct {
	sender         messageSender
	requestID      uint64
	registrationID uint64
	args           wamp.List
	kwargs         wamp.Dict
	details        wamp.Dict

	mu   sync.Mutex
	done bool
}

func newInvocation(sender messageSender, msg wamp.Invocation) *Invocation {
	return &Invocation{
		sender:         sender,
		requestID:      msg.RequestID,
		registrationID: msg.RegistrationID,
		args:           msg.Args,
		kwargs:         msg.Kwargs,
		details:        msg.Details,
	}
}

func (i *Invocation) RequestID() uint64      { return i.requestID }
func (i *Invocation) RegistrationID() uint64 { return i.registrationID }
func (i *Invocation) Args() wamp.List        { return i.args }
func (i *Invocation) Kwargs() wamp.Dict      { return i.kwargs }
func (i *Invocation) Details() wamp.Dict     { return i.details }

// MaySendProgress reports whether the caller set receive_progress=true.
func (i *Invocation) MaySendProgress() bool {
	v, _ := i.details["receive_progress"].(bool)
	return v
}

func (i *Invocation) markDone() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return fmt.Errorf("client: invocation %d already completed", i.requestID)
	}
	i.done = true
	return nil
}

// SendProgress emits an intermediate YIELD with options.progress=true. It
// fails once the invocation is done, or if the caller never asked for
// progress (spec.md §4.6's invocation-side send discipline).
func (i *Invocation) SendProgress(args wamp.List, kwargs wamp.Dict) error {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done {
		return fmt.Errorf("client: invocation %d already completed", i.requestID)
	}
	if !i.MaySendProgress() {
		return fmt.Errorf("client: caller did not set receive_progress")
	}

	return i.sender.send(wamp.Yield{
		RequestID: i.requestID,
		Options:   wamp.Dict{"progress": true},
		Args:      args,
		Kwargs:    kwargs,
	})
}

// SendResult marks the invocation done and sends the final YIELD. Any
// "progress" key in options is stripped so a result can never be
// mistaken for progress.
func (i *Invocation) SendResult(args wamp.List, kwargs wamp.Dict, options wamp.Dict) error {
	if err := i.markDone(); err != nil {
		return err
	}
	if options == nil {
		options = wamp.Dict{}
	} else {
		delete(options, "progress")
	}
	return i.sender.send(wamp.Yield{RequestID: i.requestID, Options: options, Args: args, Kwargs: kwargs})
}

// SendError marks the invocation done and sends an ERROR in reply to the
// INVOCATION.
func (i *Invocation) SendError(uri string, args wamp.List, kwargs wamp.Dict, details wamp.Dict) error {
	if err := i.markDone(); err != nil {
		return err
	}
	if details == nil {
		details = wamp.Dict{}
	}
	return i.sender.send(wamp.Error{
		RequestType: wamp.TypeInvocation,
		RequestID:   i.requestID,
		Details:     details,
		URI:         uri,
		Args:        args,
		Kwargs:      kwargs,
	})
}
