package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used by all policies. It is satisfied by both
// the system clock and the fake clock, so any timed behavior can be driven
// deterministically in tests.
type Clock = clockwork.Clock

// FakeClock is a manually advanced clock for tests.
type FakeClock = *clockwork.FakeClock

// New returns the system clock.
func New() Clock {
	return clockwork.NewRealClock()
}

// NewFake returns a fake clock that only moves when advanced explicitly.
func NewFake() FakeClock {
	return clockwork.NewFakeClock()
}

// Sleep blocks for d on clk or until ctx is cancelled, whichever comes
// first. It returns nil after a full sleep and ctx.Err() on cancellation.
// A non-positive d returns immediately with the context's current error.
func Sleep(ctx context.Context, clk Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
