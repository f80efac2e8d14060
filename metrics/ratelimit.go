package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/shield/clock"
	"github.com/jonwraymond/shield/ratelimit"
)

// LimiterSnapshot is one flush window of rate limiter metrics.
// The zero value is the identity for Add.
type LimiterSnapshot struct {
	// Interval is the elapsed wall time covered by this window.
	Interval time.Duration

	// Enqueued counts calls that entered Execute.
	Enqueued uint64
	// Started counts calls that received a permit and began running.
	Started uint64
	// Interrupted counts calls cancelled while waiting for a permit.
	Interrupted uint64

	// QueueLatency observes the delay between enqueue and permit
	// issuance, in nanoseconds.
	QueueLatency HistogramSnapshot
}

// Add combines two windows: intervals sum, counters add, histograms add
// bucket-wise.
func (s LimiterSnapshot) Add(other LimiterSnapshot) LimiterSnapshot {
	return LimiterSnapshot{
		Interval:     s.Interval + other.Interval,
		Enqueued:     s.Enqueued + other.Enqueued,
		Started:      s.Started + other.Started,
		Interrupted:  s.Interrupted + other.Interrupted,
		QueueLatency: s.QueueLatency.Add(other.QueueLatency),
	}
}

// LimiterMonitorConfig configures a rate limiter monitor.
type LimiterMonitorConfig struct {
	// FlushInterval is how often a window is closed and delivered.
	// Default: 10 seconds
	FlushInterval time.Duration

	// QueueLatency is the bucket layout for the queue latency histogram.
	QueueLatency HistogramSettings

	// OnSnapshot receives each closed window. Panics are swallowed.
	OnSnapshot func(LimiterSnapshot)

	// Clock is the time source for windows.
	// Default: the system clock.
	Clock clock.Clock
}

// LimiterMonitor wraps a rate limiter and aggregates windowed metrics.
type LimiterMonitor struct {
	limiter    *ratelimit.Limiter
	onSnapshot func(LimiterSnapshot)
	clk        clock.Clock

	mu          sync.Mutex
	start       time.Time
	enqueued    uint64
	started     uint64
	interrupted uint64
	latency     *Histogram

	cancel    context.CancelFunc
	flusherC  chan struct{}
	closeOnce sync.Once
}

// NewLimiterMonitor creates a monitor around l and starts its flush task.
// Close must be called to stop the task and emit the final window.
func NewLimiterMonitor(l *ratelimit.Limiter, config LimiterMonitorConfig) *LimiterMonitor {
	// Apply defaults
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaultFlushInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	m := &LimiterMonitor{
		limiter:    l,
		onSnapshot: config.OnSnapshot,
		clk:        config.Clock,
		start:      config.Clock.Now(),
		latency:    NewHistogram(config.QueueLatency),
		flusherC:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go tickLoop(ctx, m.clk, config.FlushInterval, m.flush, m.flusherC)
	return m
}

// Execute runs the operation through the monitored rate limiter and
// returns its result unchanged.
func (m *LimiterMonitor) Execute(ctx context.Context, op func(context.Context) error) error {
	enqueueTime := m.clk.Now()
	m.mu.Lock()
	m.enqueued++
	m.mu.Unlock()

	admitted := false
	err := m.limiter.Execute(ctx, func(ctx context.Context) error {
		wait := m.clk.Now().Sub(enqueueTime)
		m.mu.Lock()
		m.started++
		m.latency.Record(int64(wait))
		m.mu.Unlock()
		admitted = true
		return op(ctx)
	})

	if !admitted && (interrupted(err) || errors.Is(err, ratelimit.ErrClosed)) {
		m.mu.Lock()
		m.interrupted++
		m.mu.Unlock()
	}
	return err
}

// Snapshot returns the current open window without closing it.
func (m *LimiterMonitor) Snapshot() LimiterSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.clk.Now())
}

// Close stops the flush task and delivers the final partial window.
// It is idempotent.
func (m *LimiterMonitor) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		<-m.flusherC
		m.flush()
	})
}

func (m *LimiterMonitor) flush() {
	now := m.clk.Now()
	m.mu.Lock()
	snap := m.snapshotLocked(now)
	m.enqueued = 0
	m.started = 0
	m.interrupted = 0
	m.latency.Reset()
	m.start = now
	m.mu.Unlock()

	if m.onSnapshot != nil {
		deliver(func() { m.onSnapshot(snap) })
	}
}

func (m *LimiterMonitor) snapshotLocked(now time.Time) LimiterSnapshot {
	return LimiterSnapshot{
		Interval:     now.Sub(m.start),
		Enqueued:     m.enqueued,
		Started:      m.started,
		Interrupted:  m.interrupted,
		QueueLatency: m.latency.Snapshot(),
	}
}
