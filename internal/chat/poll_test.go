package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"
)

func TestPoller_PollsUntilDone(t *testing.T) {
	for _, pending := range []int{0, 1, 4} {
		w := &noWait{}
		ops := &fakeOperations{pending: pending, final: doneVideo("u")}
		p := &Poller{Interval: time.Second, Wait: w.Wait}

		op, polls, err := p.Await(context.Background(), ops, &genai.GenerateVideosOperation{Name: "operations/x"})
		if err != nil {
			t.Fatalf("pending=%d: %v", pending, err)
		}
		if polls != pending+1 || ops.calls != pending+1 {
			t.Errorf("pending=%d: polls=%d calls=%d, want %d", pending, polls, ops.calls, pending+1)
		}
		if StateOf(op) != PollDone {
			t.Errorf("pending=%d: final state %v", pending, StateOf(op))
		}
		for _, d := range w.waits {
			if d != time.Second {
				t.Errorf("wait = %v, want fixed 1s interval", d)
			}
		}
	}
}

func TestPoller_Timeout(t *testing.T) {
	ops := &fakeOperations{pending: 1000}
	p := &Poller{Interval: 5 * time.Second, Timeout: 20 * time.Second, Wait: (&noWait{}).Wait}

	_, polls, err := p.Await(context.Background(), ops, &genai.GenerateVideosOperation{})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if polls != 4 {
		t.Errorf("polls = %d, want 4", polls)
	}
}

func TestPoller_ZeroTimeoutIsUnbounded(t *testing.T) {
	ops := &fakeOperations{pending: 500, final: doneVideo("u")}
	p := &Poller{Interval: time.Hour, Wait: (&noWait{}).Wait}
	if _, polls, err := p.Await(context.Background(), ops, &genai.GenerateVideosOperation{}); err != nil || polls != 501 {
		t.Errorf("polls=%d err=%v", polls, err)
	}
}

func TestPoller_NilOperation(t *testing.T) {
	p := NewPoller(0, 0)
	if p.Interval != DefaultPollInterval {
		t.Errorf("default interval = %v", p.Interval)
	}
	if _, _, err := p.Await(context.Background(), &fakeOperations{}, nil); err == nil {
		t.Error("expected error for nil operation")
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		op   *genai.GenerateVideosOperation
		want PollState
	}{
		{nil, PollPending},
		{&genai.GenerateVideosOperation{}, PollPending},
		{&genai.GenerateVideosOperation{Done: true}, PollDone},
		{&genai.GenerateVideosOperation{Done: true, Error: map[string]any{"message": "x"}}, PollFailed},
	}
	for _, tt := range tests {
		if got := StateOf(tt.op); got != tt.want {
			t.Errorf("StateOf(%+v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}
