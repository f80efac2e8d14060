package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/shield/clock"
)

const (
	defaultFlushInterval  = 10 * time.Second
	defaultSampleInterval = time.Second
)

// tickLoop calls fn on every tick until ctx is cancelled, then closes
// done. The final flush on Close happens outside the loop so that it is
// ordered after the loop has fully stopped.
func tickLoop(ctx context.Context, clk clock.Clock, interval time.Duration, fn func(), done chan<- struct{}) {
	defer close(done)

	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			fn()
		}
	}
}

// interrupted reports whether err is a context cancellation or deadline
// error, meaning the caller gave up while the call was still waiting for
// admission. Policy teardown errors are not recognised here.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// deliver invokes a snapshot callback, swallowing panics: observers are
// informational and must not destabilize the policy.
func deliver(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
