// Package breaker implements a circuit breaker with a scheduled recovery
// probe.
//
// The breaker wraps calls to a fallible resource and short-circuits them
// after a run of consecutive failures. Recovery is probed on a schedule:
// after each trip a background task waits out the next delay from the
// configured [schedule.Schedule], then lets exactly one call through. A
// successful probe closes the circuit and rewinds the schedule; a failed
// probe re-opens it with a longer delay.
//
// # States
//
//	closed ──failures reach MaxFailures──▶ open ──after delay──▶ half-open
//	half-open ──probe succeeds──▶ closed   (schedule rewinds)
//	half-open ──probe fails────▶ open     (next delay is longer)
//
// The failure cap is a threshold, not a reservation: calls already in
// flight when the circuit opens may still fail afterwards. Those late
// failures are counted but never re-open an already-open circuit.
//
// # Usage
//
//	cb := breaker.New(breaker.Config{
//	    MaxFailures:   10,
//	    ResetSchedule: schedule.Exponential(time.Second, 2.0),
//	})
//	defer cb.Close()
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//	if errors.Is(err, breaker.ErrOpen) {
//	    // rejected without running the operation
//	}
//
// Errors from the operation are returned verbatim; the breaker never
// retries and never wraps them.
package breaker
