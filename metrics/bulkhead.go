package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/shield/bulkhead"
	"github.com/jonwraymond/shield/clock"
)

// BulkheadSnapshot is one flush window of bulkhead metrics.
// The zero value is the identity for Add.
type BulkheadSnapshot struct {
	// Interval is the elapsed wall time covered by this window.
	Interval time.Duration

	// Enqueued counts calls that entered Execute.
	Enqueued uint64
	// Started counts calls admitted into the in-flight region.
	Started uint64
	// Completed counts any termination of an admitted operation:
	// success, failure, or cancellation.
	Completed uint64
	// Interrupted counts calls cancelled while still queued.
	Interrupted uint64
	// Rejected counts calls refused because both the in-flight slots
	// and the queue were full.
	Rejected uint64

	// QueueLatency observes the delay between enqueue and admission,
	// in nanoseconds.
	QueueLatency HistogramSnapshot
	// InFlight holds periodic samples of the in-flight gauge.
	InFlight HistogramSnapshot
	// Queued holds periodic samples of the queue-depth gauge.
	Queued HistogramSnapshot
}

// Add combines two windows: intervals sum, counters add, histograms add
// bucket-wise.
func (s BulkheadSnapshot) Add(other BulkheadSnapshot) BulkheadSnapshot {
	return BulkheadSnapshot{
		Interval:     s.Interval + other.Interval,
		Enqueued:     s.Enqueued + other.Enqueued,
		Started:      s.Started + other.Started,
		Completed:    s.Completed + other.Completed,
		Interrupted:  s.Interrupted + other.Interrupted,
		Rejected:     s.Rejected + other.Rejected,
		QueueLatency: s.QueueLatency.Add(other.QueueLatency),
		InFlight:     s.InFlight.Add(other.InFlight),
		Queued:       s.Queued.Add(other.Queued),
	}
}

// BulkheadMonitorConfig configures a bulkhead monitor.
type BulkheadMonitorConfig struct {
	// FlushInterval is how often a window is closed and delivered.
	// Default: 10 seconds
	FlushInterval time.Duration

	// SampleInterval is how often the in-flight and queue-depth gauges
	// are sampled.
	// Default: 1 second
	SampleInterval time.Duration

	// QueueLatency is the bucket layout for the queue latency histogram.
	QueueLatency HistogramSettings

	// OnSnapshot receives each closed window. Panics are swallowed.
	OnSnapshot func(BulkheadSnapshot)

	// Clock is the time source for windows and sampling.
	// Default: the system clock.
	Clock clock.Clock
}

// BulkheadMonitor wraps a bulkhead and aggregates windowed metrics.
type BulkheadMonitor struct {
	bh         *bulkhead.Bulkhead
	onSnapshot func(BulkheadSnapshot)
	clk        clock.Clock

	mu          sync.Mutex
	start       time.Time
	enqueued    uint64
	started     uint64
	completed   uint64
	interrupted uint64
	rejected    uint64
	latency     *Histogram
	inFlight    *Histogram
	queued      *Histogram

	cancel    context.CancelFunc
	flusherC  chan struct{}
	samplerC  chan struct{}
	closeOnce sync.Once
}

// NewBulkheadMonitor creates a monitor around bh and starts its flush and
// gauge-sampling tasks. Close must be called to stop them and emit the
// final window.
func NewBulkheadMonitor(bh *bulkhead.Bulkhead, config BulkheadMonitorConfig) *BulkheadMonitor {
	// Apply defaults
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaultFlushInterval
	}
	if config.SampleInterval <= 0 {
		config.SampleInterval = defaultSampleInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	m := &BulkheadMonitor{
		bh:         bh,
		onSnapshot: config.OnSnapshot,
		clk:        config.Clock,
		start:      config.Clock.Now(),
		latency:    NewHistogram(config.QueueLatency),
		inFlight:   NewHistogram(gaugeSettings(bh.MaxInFlight())),
		queued:     NewHistogram(gaugeSettings(bh.MaxQueueing())),
		flusherC:   make(chan struct{}),
		samplerC:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go tickLoop(ctx, m.clk, config.FlushInterval, m.flush, m.flusherC)
	go tickLoop(ctx, m.clk, config.SampleInterval, m.sample, m.samplerC)
	return m
}

// gaugeSettings covers [1, limit] with one bucket per value up to the
// default bucket count. Gauge samples are plain counts recorded through
// the duration-typed histogram.
func gaugeSettings(limit int) HistogramSettings {
	if limit < 1 {
		limit = 1
	}
	n := limit
	if n > 30 {
		n = 30
	}
	return HistogramSettings{
		Min:         1,
		Max:         time.Duration(limit) + 1,
		BucketCount: n,
	}
}

// Execute runs the operation through the monitored bulkhead and returns
// its result unchanged.
func (m *BulkheadMonitor) Execute(ctx context.Context, op func(context.Context) error) error {
	enqueueTime := m.clk.Now()
	m.mu.Lock()
	m.enqueued++
	m.mu.Unlock()

	admitted := false
	err := m.bh.Execute(ctx, func(ctx context.Context) error {
		wait := m.clk.Now().Sub(enqueueTime)
		m.mu.Lock()
		m.started++
		m.latency.Record(int64(wait))
		m.mu.Unlock()
		admitted = true

		defer func() {
			m.mu.Lock()
			m.completed++
			m.mu.Unlock()
		}()
		return op(ctx)
	})

	if !admitted {
		switch {
		case errors.Is(err, bulkhead.ErrRejected):
			m.mu.Lock()
			m.rejected++
			m.mu.Unlock()
		case interrupted(err):
			m.mu.Lock()
			m.interrupted++
			m.mu.Unlock()
		}
	}
	return err
}

// Snapshot returns the current open window without closing it.
func (m *BulkheadMonitor) Snapshot() BulkheadSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.clk.Now())
}

// Close stops the flush and sampling tasks and delivers the final
// partial window. It is idempotent.
func (m *BulkheadMonitor) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		<-m.flusherC
		<-m.samplerC
		m.flush()
	})
}

func (m *BulkheadMonitor) sample() {
	inFlight := int64(m.bh.InFlight())
	queued := int64(m.bh.Queued())
	m.mu.Lock()
	m.inFlight.Record(inFlight)
	m.queued.Record(queued)
	m.mu.Unlock()
}

func (m *BulkheadMonitor) flush() {
	now := m.clk.Now()
	m.mu.Lock()
	snap := m.snapshotLocked(now)
	m.enqueued = 0
	m.started = 0
	m.completed = 0
	m.interrupted = 0
	m.rejected = 0
	m.latency.Reset()
	m.inFlight.Reset()
	m.queued.Reset()
	m.start = now
	m.mu.Unlock()

	if m.onSnapshot != nil {
		deliver(func() { m.onSnapshot(snap) })
	}
}

func (m *BulkheadMonitor) snapshotLocked(now time.Time) BulkheadSnapshot {
	return BulkheadSnapshot{
		Interval:     now.Sub(m.start),
		Enqueued:     m.enqueued,
		Started:      m.started,
		Completed:    m.completed,
		Interrupted:  m.interrupted,
		Rejected:     m.rejected,
		QueueLatency: m.latency.Snapshot(),
		InFlight:     m.inFlight.Snapshot(),
		Queued:       m.queued.Snapshot(),
	}
}
