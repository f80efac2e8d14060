package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/shield/breaker"
	"github.com/jonwraymond/shield/clock"
)

// BreakerSnapshot is one flush window of circuit breaker metrics. The
// breaker never queues, so its window carries call outcomes and state
// transitions instead of queue accounting.
// The zero value is the identity for Add.
type BreakerSnapshot struct {
	// Interval is the elapsed wall time covered by this window.
	Interval time.Duration

	// Successes counts calls that completed without error.
	Successes uint64
	// Failures counts calls that ran and returned an error.
	Failures uint64
	// Rejected counts calls refused because the circuit was open.
	Rejected uint64

	// Opened, HalfOpened, and Closed count transitions into each state.
	Opened     uint64
	HalfOpened uint64
	Closed     uint64
}

// Add combines two windows: intervals sum, counters add.
func (s BreakerSnapshot) Add(other BreakerSnapshot) BreakerSnapshot {
	return BreakerSnapshot{
		Interval:   s.Interval + other.Interval,
		Successes:  s.Successes + other.Successes,
		Failures:   s.Failures + other.Failures,
		Rejected:   s.Rejected + other.Rejected,
		Opened:     s.Opened + other.Opened,
		HalfOpened: s.HalfOpened + other.HalfOpened,
		Closed:     s.Closed + other.Closed,
	}
}

// BreakerMonitorConfig configures a circuit breaker monitor.
type BreakerMonitorConfig struct {
	// FlushInterval is how often a window is closed and delivered.
	// Default: 10 seconds
	FlushInterval time.Duration

	// OnSnapshot receives each closed window. Panics are swallowed.
	OnSnapshot func(BreakerSnapshot)

	// Clock is the time source for windows.
	// Default: the system clock.
	Clock clock.Clock
}

// BreakerMonitor wraps a circuit breaker and aggregates windowed metrics.
//
// Transition counts are fed through the callback returned by
// OnStateChange, which must be wired into the breaker's configuration:
//
//	mon := metrics.NewBreakerMonitor(cfg)
//	cb := breaker.New(breaker.Config{
//	    OnStateChange: mon.OnStateChange(),
//	})
//	mon.Attach(cb)
type BreakerMonitor struct {
	onSnapshot func(BreakerSnapshot)
	clk        clock.Clock

	cb *breaker.Breaker

	mu         sync.Mutex
	start      time.Time
	successes  uint64
	failures   uint64
	rejected   uint64
	opened     uint64
	halfOpened uint64
	closed     uint64

	cancel    context.CancelFunc
	flusherC  chan struct{}
	closeOnce sync.Once
}

// NewBreakerMonitor creates a monitor and starts its flush task. Attach
// the breaker before calling Execute. Close must be called to stop the
// task and emit the final window.
func NewBreakerMonitor(config BreakerMonitorConfig) *BreakerMonitor {
	// Apply defaults
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaultFlushInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	m := &BreakerMonitor{
		onSnapshot: config.OnSnapshot,
		clk:        config.Clock,
		start:      config.Clock.Now(),
		flusherC:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go tickLoop(ctx, m.clk, config.FlushInterval, m.flush, m.flusherC)
	return m
}

// Attach sets the breaker this monitor delegates to.
func (m *BreakerMonitor) Attach(cb *breaker.Breaker) {
	m.cb = cb
}

// OnStateChange returns a callback that counts state transitions, for
// wiring into breaker.Config. It may be composed with other callbacks by
// the caller.
func (m *BreakerMonitor) OnStateChange() func(breaker.State) {
	return func(s breaker.State) {
		m.mu.Lock()
		defer m.mu.Unlock()
		switch s {
		case breaker.StateOpen:
			m.opened++
		case breaker.StateHalfOpen:
			m.halfOpened++
		case breaker.StateClosed:
			m.closed++
		}
	}
}

// Execute runs the operation through the monitored breaker and returns
// its result unchanged.
func (m *BreakerMonitor) Execute(ctx context.Context, op func(context.Context) error) error {
	err := m.cb.Execute(ctx, op)

	m.mu.Lock()
	switch {
	case errors.Is(err, breaker.ErrOpen):
		m.rejected++
	case err != nil:
		m.failures++
	default:
		m.successes++
	}
	m.mu.Unlock()
	return err
}

// Snapshot returns the current open window without closing it.
func (m *BreakerMonitor) Snapshot() BreakerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.clk.Now())
}

// Close stops the flush task and delivers the final partial window.
// It is idempotent. It does not close the underlying breaker.
func (m *BreakerMonitor) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		<-m.flusherC
		m.flush()
	})
}

func (m *BreakerMonitor) flush() {
	now := m.clk.Now()
	m.mu.Lock()
	snap := m.snapshotLocked(now)
	m.successes = 0
	m.failures = 0
	m.rejected = 0
	m.opened = 0
	m.halfOpened = 0
	m.closed = 0
	m.start = now
	m.mu.Unlock()

	if m.onSnapshot != nil {
		deliver(func() { m.onSnapshot(snap) })
	}
}

func (m *BreakerMonitor) snapshotLocked(now time.Time) BreakerSnapshot {
	return BreakerSnapshot{
		Interval:   now.Sub(m.start),
		Successes:  m.successes,
		Failures:   m.failures,
		Rejected:   m.rejected,
		Opened:     m.opened,
		HalfOpened: m.halfOpened,
		Closed:     m.closed,
	}
}
