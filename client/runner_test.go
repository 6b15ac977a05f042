package client

import (
	"context"
	"errors"
	"testing"

	"github.com/gieseladev/aiowamp/wamp"
)

func TestRunnerUnaryHandlerSendsResult(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1})
	runner := NewRunner(nil, nil)

	handler := HandlerFunc(func(ctx context.Context, inv *Invocation) (interface{}, error) {
		return 42, nil
	})

	_, done := runner.Dispatch(context.Background(), inv, handler)
	<-done

	yield, ok := sender.sent[0].(wamp.Yield)
	if !ok {
		t.Fatalf("expected Yield, got %T", sender.sent[0])
	}
	if len(yield.Args) != 1 || yield.Args[0] != 42 {
		t.Errorf("unexpected yield args: %#v", yield.Args)
	}
}

func TestRunnerUnaryHandlerError(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1})
	runner := NewRunner(nil, nil)

	handler := HandlerFunc(func(ctx context.Context, inv *Invocation) (interface{}, error) {
		return nil, errors.New("boom")
	})

	_, done := runner.Dispatch(context.Background(), inv, handler)
	<-done

	errMsg, ok := sender.sent[0].(wamp.Error)
	if !ok {
		t.Fatalf("expected Error, got %T", sender.sent[0])
	}
	if errMsg.URI != wamp.ErrRuntimeError {
		t.Errorf("unexpected error URI: %s", errMsg.URI)
	}
}

func TestRunnerStreamHandlerSendsProgressThenResult(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1, Details: wamp.Dict{"receive_progress": true}})
	runner := NewRunner(nil, nil)

	handler := StreamHandlerFunc(func(ctx context.Context, inv *Invocation, yield func(interface{}) error) (interface{}, error) {
		if err := yield(1); err != nil {
			return nil, err
		}
		if err := yield(2); err != nil {
			return nil, err
		}
		return 3, nil
	})

	_, done := runner.Dispatch(context.Background(), inv, handler)
	<-done

	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 messages sent, got %d", len(sender.sent))
	}
	for i := 0; i < 2; i++ {
		y, ok := sender.sent[i].(wamp.Yield)
		if !ok || y.Options["progress"] != true {
			t.Errorf("expected progress Yield at index %d, got %#v", i, sender.sent[i])
		}
	}
	final, ok := sender.sent[2].(wamp.Yield)
	if !ok || final.Options["progress"] == true {
		t.Errorf("expected final Yield without progress, got %#v", sender.sent[2])
	}
}

func TestRunnerStreamHandlerNaturalTerminationUsesLastYieldAsFinal(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1, Details: wamp.Dict{"receive_progress": true}})
	runner := NewRunner(nil, nil)

	handler := StreamHandlerFunc(func(ctx context.Context, inv *Invocation, yield func(interface{}) error) (interface{}, error) {
		if err := yield(1); err != nil {
			return nil, err
		}
		if err := yield(2); err != nil {
			return nil, err
		}
		if err := yield(3); err != nil {
			return nil, err
		}
		return nil, nil
	})

	_, done := runner.Dispatch(context.Background(), inv, handler)
	<-done

	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 messages sent, got %d", len(sender.sent))
	}
	for i, want := range []int{1, 2} {
		y, ok := sender.sent[i].(wamp.Yield)
		if !ok || y.Options["progress"] != true || y.Args[0] != want {
			t.Errorf("expected progress Yield %d at index %d, got %#v", want, i, sender.sent[i])
		}
	}
	final, ok := sender.sent[2].(wamp.Yield)
	if !ok || final.Options["progress"] == true || final.Args[0] != 3 {
		t.Errorf("expected final Yield with last-yielded value 3, got %#v", sender.sent[2])
	}
}

func TestRunnerStreamHandlerInvocationProgressBypassesBuffer(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1, Details: wamp.Dict{"receive_progress": true}})
	runner := NewRunner(nil, nil)

	handler := StreamHandlerFunc(func(ctx context.Context, inv *Invocation, yield func(interface{}) error) (interface{}, error) {
		if err := yield("progress0"); err != nil {
			return nil, err
		}
		if err := yield(InvocationProgress{Value: "instant progress"}); err != nil {
			return nil, err
		}
		if err := yield("progress1"); err != nil {
			return nil, err
		}
		return nil, nil
	})

	_, done := runner.Dispatch(context.Background(), inv, handler)
	<-done

	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 messages sent, got %d", len(sender.sent))
	}
	wantProgress := []string{"progress0", "instant progress"}
	for i, want := range wantProgress {
		y, ok := sender.sent[i].(wamp.Yield)
		if !ok || y.Options["progress"] != true || y.Args[0] != want {
			t.Errorf("expected progress Yield %q at index %d, got %#v", want, i, sender.sent[i])
		}
	}
	final, ok := sender.sent[2].(wamp.Yield)
	if !ok || final.Options["progress"] == true || final.Args[0] != "progress1" {
		t.Errorf("expected final Yield %q, got %#v", "progress1", sender.sent[2])
	}
}

func TestRunnerInterruptCancelsContext(t *testing.T) {
	sender := &fakeSender{}
	inv := newInvocation(sender, wamp.Invocation{RequestID: 1, RegistrationID: 1})
	runner := NewRunner(nil, nil)

	started := make(chan struct{})
	handler := HandlerFunc(func(ctx context.Context, inv *Invocation) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	cancel, done := runner.Dispatch(context.Background(), inv, handler)
	<-started
	cancel()
	<-done

	errMsg, ok := sender.sent[0].(wamp.Error)
	if !ok || errMsg.URI != wamp.ErrCanceled {
		t.Fatalf("expected canceled Error, got %#v", sender.sent[0])
	}
}
