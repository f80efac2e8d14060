package bulkhead

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Config configures the bulkhead.
type Config struct {
	// MaxInFlight is the maximum number of concurrent operations.
	// Default: 10
	MaxInFlight int

	// MaxQueueing is the maximum number of callers allowed to wait for
	// an in-flight slot. Zero means no queueing: calls are rejected as
	// soon as all slots are taken.
	// Default: 0
	MaxQueueing int
}

// Bulkhead limits concurrent operations and queues the overflow.
type Bulkhead struct {
	maxInFlight int
	maxQueueing int
	capacity    int64 // maxInFlight + maxQueueing

	// sem admits callers into the in-flight region in FIFO order.
	sem *semaphore.Weighted

	occupancy atomic.Int64 // callers in the admit+queue region
	inFlight  atomic.Int64
	queued    atomic.Int64
}

// New creates a bulkhead.
func New(config Config) *Bulkhead {
	// Apply defaults
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 10
	}
	if config.MaxQueueing < 0 {
		config.MaxQueueing = 0
	}

	return &Bulkhead{
		maxInFlight: config.MaxInFlight,
		maxQueueing: config.MaxQueueing,
		capacity:    int64(config.MaxInFlight + config.MaxQueueing),
		sem:         semaphore.NewWeighted(int64(config.MaxInFlight)),
	}
}

// Execute runs the operation within the bulkhead.
//
// When all in-flight slots and all queue slots are taken, Execute fails
// immediately with ErrRejected. Otherwise the caller waits in FIFO order
// for a slot; a caller cancelled while queued vacates its slot and
// returns the context's error. Errors from op are returned verbatim.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	for {
		cur := b.occupancy.Load()
		if cur >= b.capacity {
			return ErrRejected
		}
		if b.occupancy.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	if !b.sem.TryAcquire(1) {
		b.queued.Inc()
		err := b.sem.Acquire(ctx, 1)
		b.queued.Dec()
		if err != nil {
			b.occupancy.Dec()
			return err
		}
	}
	b.inFlight.Inc()

	defer func() {
		b.inFlight.Dec()
		b.sem.Release(1)
		b.occupancy.Dec()
	}()

	return op(ctx)
}

// InFlight returns the number of operations currently running.
func (b *Bulkhead) InFlight() int {
	return int(b.inFlight.Load())
}

// Queued returns the number of callers currently waiting for a slot.
func (b *Bulkhead) Queued() int {
	return int(b.queued.Load())
}

// MaxInFlight returns the configured concurrency limit.
func (b *Bulkhead) MaxInFlight() int {
	return b.maxInFlight
}

// MaxQueueing returns the configured queue bound.
func (b *Bulkhead) MaxQueueing() int {
	return b.maxQueueing
}
