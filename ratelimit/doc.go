// Package ratelimit implements a fair sliding-window rate limiter.
//
// The limiter issues at most Max permits within any rolling window of
// width Interval. Callers that arrive while the window is full wait in
// FIFO order; they are never rejected. A waiting caller whose context is
// cancelled vacates the queue without consuming a permit.
//
// # Usage
//
//	rl := ratelimit.New(ratelimit.Config{
//	    Max:      5,
//	    Interval: time.Second,
//	})
//	defer rl.Close()
//
//	err := rl.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//
// Execute returns the operation's error verbatim; the limiter itself only
// ever fails a call with the caller's own context error or with ErrClosed
// after Close.
package ratelimit
