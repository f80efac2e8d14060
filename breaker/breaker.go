package breaker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/jonwraymond/shield/clock"
	"github.com/jonwraymond/shield/schedule"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all calls.
	StateOpen
	// StateHalfOpen means the circuit is probing for recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures the circuit breaker.
type Config struct {
	// MaxFailures is the number of consecutive failures before opening
	// the circuit.
	// Default: 5
	MaxFailures int

	// ResetSchedule produces the delay before each recovery probe. It is
	// advanced once per trip and rewound when a probe succeeds.
	// Default: exponential from 1s with factor 2.0, capped at 1 minute.
	ResetSchedule schedule.Schedule

	// OnStateChange is called after every state transition with the new
	// state. Panics in the callback are swallowed.
	OnStateChange func(State)

	// IsFailure determines if an error should count against the circuit.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock is the time source for the reset task.
	// Default: the system clock.
	Clock clock.Clock
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	maxFailures   int
	isFailure     func(error) bool
	onStateChange func(State)
	clk           clock.Clock

	mu           sync.Mutex
	state        State
	failures     int
	halfOpenGate bool
	sched        schedule.Schedule

	successes    atomic.Uint64
	failedCalls  atomic.Uint64
	rejected     atomic.Uint64
	stateChanges atomic.Uint64

	// resetc carries at most one pending reset request; excess offers
	// are dropped.
	resetc chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	taskDone  chan struct{}
	closeOnce sync.Once
}

// New creates a circuit breaker and starts its reset task. Close must be
// called to stop the task.
func New(config Config) *Breaker {
	// Apply defaults
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetSchedule == nil {
		config.ResetSchedule = schedule.ExponentialCapped(time.Second, 2.0, time.Minute)
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	b := &Breaker{
		maxFailures:   config.MaxFailures,
		isFailure:     config.IsFailure,
		onStateChange: config.OnStateChange,
		clk:           config.Clock,
		state:         StateClosed,
		halfOpenGate:  true,
		sched:         config.ResetSchedule,
		resetc:        make(chan struct{}, 1),
		taskDone:      make(chan struct{}),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	go b.resetLoop()
	return b
}

// Execute runs the operation through the circuit breaker.
//
// When the circuit is open, or half-open with the probe slot already
// taken, Execute returns ErrOpen without running op. Otherwise op's
// error is returned verbatim.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		b.rejected.Inc()
		return ErrOpen

	case StateHalfOpen:
		if !b.halfOpenGate {
			b.mu.Unlock()
			b.rejected.Inc()
			return ErrOpen
		}
		// Take the single probe slot.
		b.halfOpenGate = false
		b.mu.Unlock()
		return b.probe(ctx, op)
	}
	b.mu.Unlock()

	err := op(ctx)
	if !b.isFailure(err) {
		b.successes.Inc()
		b.mu.Lock()
		b.failures = 0
		b.mu.Unlock()
		return err
	}
	b.failedCalls.Inc()

	b.mu.Lock()
	if b.failures < b.maxFailures {
		b.failures++
	}
	tripped := b.failures == b.maxFailures && b.state == StateClosed
	if tripped {
		b.state = StateOpen
	}
	b.mu.Unlock()

	if tripped {
		b.requestReset()
		b.notify(StateOpen)
	}
	return err
}

// probe runs the single half-open call and settles the circuit on its
// outcome.
func (b *Breaker) probe(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if b.isFailure(err) {
		b.failedCalls.Inc()
		b.mu.Lock()
		b.state = StateOpen
		b.mu.Unlock()
		b.requestReset()
		b.notify(StateOpen)
		return err
	}

	b.successes.Inc()
	b.mu.Lock()
	b.state = StateClosed
	b.failures = 0
	b.halfOpenGate = true
	b.sched.Reset()
	b.mu.Unlock()
	b.notify(StateClosed)
	return err
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close stops the reset task and drops any pending reset request. It is
// idempotent. In-flight calls are unaffected, but an open circuit will
// never probe again after Close.
func (b *Breaker) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		<-b.taskDone
	})
}

// resetLoop consumes reset requests: one trip, one delayed transition to
// half-open.
func (b *Breaker) resetLoop() {
	defer close(b.taskDone)

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.resetc:
		}

		b.mu.Lock()
		delay := b.sched.Next()
		b.mu.Unlock()

		if err := clock.Sleep(b.ctx, b.clk, delay); err != nil {
			return
		}

		b.mu.Lock()
		b.state = StateHalfOpen
		b.halfOpenGate = true
		b.mu.Unlock()
		b.notify(StateHalfOpen)
	}
}

// requestReset posts a reset request unless one is already pending.
func (b *Breaker) requestReset() {
	select {
	case b.resetc <- struct{}{}:
	default:
	}
}

// notify fires the state-change callback outside the state mutex; the
// callback may call back into the breaker.
func (b *Breaker) notify(s State) {
	b.stateChanges.Inc()
	if b.onStateChange == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	b.onStateChange(s)
}

// Stats returns a snapshot of breaker counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	state := b.state
	failures := b.failures
	b.mu.Unlock()

	return Stats{
		State:               state,
		ConsecutiveFailures: failures,
		Successes:           b.successes.Load(),
		Failures:            b.failedCalls.Load(),
		Rejected:            b.rejected.Load(),
		StateChanges:        b.stateChanges.Load(),
	}
}

// Stats contains circuit breaker counters.
type Stats struct {
	State               State
	ConsecutiveFailures int
	Successes           uint64
	Failures            uint64
	Rejected            uint64
	StateChanges        uint64
}
