package client

import (
	"fmt"
	"sync"

	"github.com/gieseladev/aiowamp/wamp"
)

// CancelMode controls how an in-flight Call is cancelled (spec.md §4.5).
type CancelMode string

const (
	// CancelSkip asks the router to ignore cancellation if the call has
	// already been dispatched to a callee.
	CancelSkip CancelMode = "skip"
	// CancelKill propagates an interrupt to the callee and waits for its
	// reply before completing the cancellation.
	CancelKill CancelMode = "kill"
	// CancelKillNoWait propagates an interrupt but returns immediately.
	// This is the default, matching
	// original_source/aiowamp/client/call.py's CANCEL_KILL_NO_WAIT.
	CancelKillNoWait CancelMode = "killnowait"
)

// CallOptions configures an outgoing CALL beyond its positional/keyword
// arguments, implementing the option shorthands from spec.md §4.5.
type CallOptions struct {
	CancelMode      CancelMode
	CallTimeout     float64 // seconds; rounds to options.timeout (ms)
	DiscloseMe      *bool
	ReceiveProgress bool
	ResourceKey     string
	Raw             wamp.Dict // merged in last, wins on key conflicts
}

func (o CallOptions) toDict() wamp.Dict {
	d := wamp.Dict{}
	if o.CallTimeout > 0 {
		d["timeout"] = int64(o.CallTimeout*1000 + 0.5)
	}
	if o.DiscloseMe != nil {
		d["disclose_me"] = *o.DiscloseMe
	}
	if o.ReceiveProgress {
		d["receive_progress"] = true
	}
	if o.ResourceKey != "" {
		d["rkey"] = o.ResourceKey
		d["runmode"] = "partition"
	}
	for k, v := range o.Raw {
		d[k] = v
	}
	return d
}

// Call is an outstanding (or not-yet-sent) RPC, grounded on
// original_source/aiowamp/client/call.py. The CALL is not written to the
// transport until the caller first awaits Result or NextProgress.
// Progressive results are only read through NextProgress; a Call has no
// progress-handler callback.
type Call struct {
	sender     messageSender
	msg        wamp.Call
	cancelMode CancelMode

	mu         sync.Mutex
	sent       bool
	done       bool
	result     wamp.Message // wamp.Result or wamp.Error
	resultErr  error
	resultCh   chan struct{}
	progressCh chan wamp.Result
	onDropped  func() // optional metrics hook, called when a progress result is dropped
}

// messageSender is the subset of Client a Call needs; kept narrow so
// call.go doesn't import the full Client surface and so tests can fake it.
type messageSender interface {
	send(msg wamp.Message) error
}

func newCall(sender messageSender, msg wamp.Call, cancelMode CancelMode) *Call {
	if cancelMode == "" {
		cancelMode = CancelKillNoWait
	}
	return &Call{
		sender:     sender,
		msg:        msg,
		cancelMode: cancelMode,
		resultCh:   make(chan struct{}),
		progressCh: make(chan wamp.Result, 1),
	}
}

// RequestID is the CALL's request_id.
func (c *Call) RequestID() uint64 { return c.msg.RequestID }

// Done reports whether a terminal Result or Error has been recorded.
func (c *Call) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// sendIfNeeded performs the lazy first-await send.
func (c *Call) sendIfNeeded() {
	c.mu.Lock()
	if c.sent {
		c.mu.Unlock()
		return
	}
	c.sent = true
	c.mu.Unlock()

	if err := c.sender.send(c.msg); err != nil {
		c.fail(err)
	}
}

// handleResponse processes a RESULT or ERROR destined for this call,
// reporting true once the call has reached a terminal state (mirroring
// Call.handle_response in the original).
func (c *Call) handleResponse(msg wamp.Message) (terminal bool) {
	if result, ok := msg.(wamp.Result); ok && result.IsProgress() {
		// spec.md §5 permits bounding the progress queue if the choice is
		// documented (see DESIGN.md): this queue holds one slot and drops
		// the previous progress result in favor of the newest one rather
		// than blocking the receive loop on a slow consumer.
		select {
		case c.progressCh <- result:
		default:
			<-c.progressCh
			c.progressCh <- result
			if c.onDropped != nil {
				c.onDropped()
			}
		}
		return false
	}

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return true
	}
	c.done = true
	c.result = msg
	c.mu.Unlock()
	close(c.resultCh)
	return true
}

func (c *Call) fail(err error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.resultErr = err
	c.mu.Unlock()
	close(c.resultCh)
}

// Result blocks until the call's final Result or Error arrives, returning
// a *wamp.ErrorResponse built from the registry if the router sent ERROR.
func (c *Call) Result() (wamp.Result, error) {
	c.sendIfNeeded()
	<-c.resultCh

	c.mu.Lock()
	result, resultErr := c.result, c.resultErr
	c.mu.Unlock()

	if resultErr != nil {
		return wamp.Result{}, resultErr
	}
	switch m := result.(type) {
	case wamp.Result:
		return m, nil
	case wamp.Error:
		return wamp.Result{}, wamp.NewErrorResponse(m)
	default:
		return wamp.Result{}, &wamp.UnexpectedMessage{Received: m, Expected: wamp.TypeResult}
	}
}

// NextProgress returns the next progressive Result, or (zero, false) once
// the call has reached its terminal state and no more progress is
// pending.
func (c *Call) NextProgress() (wamp.Result, bool) {
	c.sendIfNeeded()
	select {
	case r := <-c.progressCh:
		return r, true
	case <-c.resultCh:
		select {
		case r := <-c.progressCh:
			return r, true
		default:
			return wamp.Result{}, false
		}
	}
}

// Cancel sends a CANCEL using mode (or the Call's configured default) and
// waits for the final reply, swallowing any error during that wait — the
// caller already knows it asked for cancellation.
func (c *Call) Cancel(mode CancelMode) error {
	c.mu.Lock()
	sent := c.sent
	c.mu.Unlock()
	if !sent {
		return nil
	}

	if mode == "" {
		mode = c.cancelMode
	}
	if err := c.sender.send(wamp.Cancel{RequestID: c.msg.RequestID, Options: wamp.Dict{"mode": string(mode)}}); err != nil {
		return fmt.Errorf("client: send CANCEL: %w", err)
	}

	<-c.resultCh
	return nil
}
