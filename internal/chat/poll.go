package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Video polling defaults.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
)

// ErrPollTimeout is returned when the operation is still pending at the deadline.
var ErrPollTimeout = errors.New("video operation did not complete before the deadline")

// PollState is the lifecycle of a video operation as seen by the poller.
type PollState int

const (
	PollPending PollState = iota
	PollDone
	PollFailed
)

func (s PollState) String() string {
	switch s {
	case PollDone:
		return "done"
	case PollFailed:
		return "failed"
	default:
		return "pending"
	}
}

// StateOf classifies an operation.
func StateOf(op *genai.GenerateVideosOperation) PollState {
	switch {
	case op == nil || !op.Done:
		return PollPending
	case len(op.Error) > 0:
		return PollFailed
	default:
		return PollDone
	}
}

// Poller re-fetches a video operation at a fixed interval until it is done.
// Status-check failures are returned immediately, never retried.
type Poller struct {
	Interval time.Duration
	// Timeout bounds the total waiting time. Zero means no bound.
	Timeout time.Duration
	// Wait blocks for d or until ctx ends. Tests replace it to avoid sleeping.
	Wait func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller that sleeps for real.
func NewPoller(interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{Interval: interval, Timeout: timeout, Wait: sleepContext}
}

// Await polls op until it is done and returns the final operation along with
// the number of status checks made.
func (p *Poller) Await(ctx context.Context, fetcher OperationFetcher, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, int, error) {
	if op == nil {
		return nil, 0, errors.New("no video operation to poll")
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	wait := p.Wait
	if wait == nil {
		wait = sleepContext
	}

	polls := 0
	for !op.Done {
		if p.Timeout > 0 && time.Duration(polls)*interval >= p.Timeout {
			log.Warn().
				Str("operation", op.Name).
				Int("polls", polls).
				Dur("timeout", p.Timeout).
				Msg("Video operation timed out")
			return op, polls, ErrPollTimeout
		}
		if err := wait(ctx, interval); err != nil {
			return op, polls, err
		}

		next, err := fetcher.GetVideosOperation(ctx, op, nil)
		polls++
		if err != nil {
			return op, polls, fmt.Errorf("failed to check video operation status: %w", err)
		}
		if next == nil {
			return op, polls, errors.New("video operation status check returned nothing")
		}
		op = next

		log.Debug().
			Str("operation", op.Name).
			Int("poll", polls).
			Str("state", StateOf(op).String()).
			Msg("Video operation polled")
	}
	return op, polls, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
