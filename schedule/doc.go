// Package schedule provides reset-delay schedules for the circuit breaker.
//
// A [Schedule] is a stateful iterator over positive durations. The circuit
// breaker advances it once per trip to decide how long to stay open, and
// rewinds it with Reset when a probe succeeds so that a later trip starts
// from the base delay again.
//
// # Schedules
//
//   - [Exponential]: base, base*factor, base*factor^2, ...
//   - [ExponentialCapped]: exponential clamped to a maximum delay.
//   - [Constant]: the same delay every time.
//   - [Sequence]: an explicit list of delays; the last value repeats.
package schedule
