package client

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gieseladev/aiowamp/wamp"
)

// HandlerFunc is a run-to-completion invocation handler: the "coroutine"
// and "future" strategies of spec.md §4.6 collapse to the same shape in
// Go, since both just run on a goroutine and return one value.
type HandlerFunc func(ctx context.Context, inv *Invocation) (interface{}, error)

// StreamHandlerFunc is the "async-generator" strategy: each yielded value
// is held until the next yield or the handler's return, and only then sent
// as progress (see runStream). If the handler returns a nil result, the
// last yielded value becomes the final result; otherwise the returned
// value is the final result. yield returns an error when sending a held
// value as progress fails.
type StreamHandlerFunc func(ctx context.Context, inv *Invocation, yield func(interface{}) error) (interface{}, error)

// InvocationProgress wraps a yielded value to force an immediate,
// unbuffered progress send, bypassing runStream's one-value lookahead
// buffer (spec.md §4.6). Without it, end-of-stream can't be told apart
// from "one more value coming" until the handler actually terminates, so
// every yield normally waits one step before it is confirmed as progress.
type InvocationProgress struct {
	Value interface{}
}

// Handler is either a HandlerFunc or a StreamHandlerFunc. Register rejects
// any other type.
type Handler interface{}

// Runner dispatches INVOCATIONs to registered handlers and turns
// INTERRUPTs into context cancellation, grounded on
// original_source/aiowamp/client/invocation.py and the §4.6 strategy
// table. When a token-bucket limiter (golang.org/x/time/rate) is supplied,
// invocation starts are paced through it; with a nil limiter they start
// unpaced — see DESIGN.md for why a rate limiter was chosen over a
// semaphore for this.
type Runner struct {
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRunner builds a Runner. A nil limiter disables pacing entirely.
func NewRunner(limiter *rate.Limiter, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{limiter: limiter, logger: logger}
}

// Dispatch starts handler for inv on a new goroutine and returns a cancel
// function the caller must retain so a later INTERRUPT can be delivered
// via context cancellation. done is closed when the invocation has sent
// its terminal YIELD/ERROR.
func (r *Runner) Dispatch(ctx context.Context, inv *Invocation, handler Handler) (cancel context.CancelFunc, done <-chan struct{}) {
	ctx, cancelFn := context.WithCancel(ctx)
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				inv.SendError(wamp.ErrCanceled, nil, nil, nil)
				return
			}
		}

		switch h := handler.(type) {
		case HandlerFunc:
			r.runUnary(ctx, inv, h)
		case StreamHandlerFunc:
			r.runStream(ctx, inv, h)
		default:
			inv.SendError(wamp.ErrInvalidArgument, nil, wamp.Dict{"message": "handler is neither HandlerFunc nor StreamHandlerFunc"}, nil)
		}
	}()

	return cancelFn, doneCh
}

func (r *Runner) runUnary(ctx context.Context, inv *Invocation, handler HandlerFunc) {
	result, err := handler(ctx, inv)
	r.sendOutcome(ctx, inv, result, err)
}

// runStream implements spec.md §4.6's async-generator strategy: since the
// end of the stream isn't known until the handler actually terminates, a
// plain yielded value is held until the next yield or return confirms it
// wasn't the final one. An InvocationProgress-wrapped value skips the
// buffer and is sent as progress right away.
func (r *Runner) runStream(ctx context.Context, inv *Invocation, handler StreamHandlerFunc) {
	var buffered interface{}
	hasBuffered := false

	yield := func(v interface{}) error {
		if ip, ok := v.(InvocationProgress); ok {
			if hasBuffered {
				if err := r.sendProgressValue(inv, buffered); err != nil {
					return err
				}
				hasBuffered = false
			}
			return r.sendProgressValue(inv, ip.Value)
		}

		if hasBuffered {
			if err := r.sendProgressValue(inv, buffered); err != nil {
				return err
			}
		}
		buffered = v
		hasBuffered = true
		return nil
	}

	result, err := handler(ctx, inv, yield)

	if err == nil {
		if hasBuffered && result == nil {
			// No explicit return value: the last yielded value is final.
			result = buffered
		} else if hasBuffered {
			if sendErr := r.sendProgressValue(inv, buffered); sendErr != nil {
				r.logger.Warn("runner: failed to flush buffered progress", zap.Error(sendErr))
			}
		}
	}

	r.sendOutcome(ctx, inv, result, err)
}

func (r *Runner) sendProgressValue(inv *Invocation, v interface{}) error {
	args, kwargs, _ := normalizeResult(v)
	return inv.SendProgress(args, kwargs)
}

// sendOutcome applies the interrupt-recovery rules from spec.md §4.6: a
// handler that returns a value despite the context being cancelled is
// trusted and its value is sent as the result; one that propagates the
// cancellation (ctx.Err() as its error) yields an ERROR of kind canceled.
func (r *Runner) sendOutcome(ctx context.Context, inv *Invocation, result interface{}, err error) {
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			if sendErr := inv.SendError(wamp.ErrCanceled, nil, nil, nil); sendErr != nil {
				r.logger.Warn("runner: failed to send canceled error", zap.Error(sendErr))
			}
			return
		}

		uri := wamp.ErrRuntimeError
		if sendErr := inv.SendError(uri, nil, nil, wamp.Dict{"message": err.Error()}); sendErr != nil {
			r.logger.Warn("runner: failed to send error result", zap.Error(sendErr))
		}
		return
	}

	args, kwargs, details := normalizeResult(result)
	if sendErr := inv.SendResult(args, kwargs, details); sendErr != nil {
		r.logger.Warn("runner: failed to send result", zap.Error(sendErr))
	}
}
