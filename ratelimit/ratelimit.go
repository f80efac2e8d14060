package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/shield/clock"
)

// Config configures the rate limiter.
type Config struct {
	// Max is the number of permits issued per interval.
	// Default: 100
	Max int

	// Interval is the width of the rolling window.
	// Default: 1 second
	Interval time.Duration

	// Clock is the time source for permit accounting.
	// Default: the system clock.
	Clock clock.Clock
}

// Limiter issues at most Max permits within any rolling window of width
// Interval, in FIFO order of arrival.
type Limiter struct {
	max      int
	interval time.Duration
	clk      clock.Clock

	mu      sync.Mutex
	stamps  []time.Time // issuance times of the most recent max permits
	head    int         // index of the oldest stamp
	waiters *list.List  // of *waiter, FIFO
	closed  bool

	donec chan struct{}
}

// waiter is one queued caller. headc is closed exactly once, when the
// waiter reaches the front of the queue.
type waiter struct {
	elem     *list.Element
	headc    chan struct{}
	promoted bool
}

// New creates a rate limiter.
func New(config Config) *Limiter {
	// Apply defaults
	if config.Max <= 0 {
		config.Max = 100
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	return &Limiter{
		max:      config.Max,
		interval: config.Interval,
		clk:      config.Clock,
		stamps:   make([]time.Time, config.Max),
		waiters:  list.New(),
		donec:    make(chan struct{}),
	}
}

// Execute acquires a permit, waiting as long as necessary, then runs the
// operation. The operation's error is returned verbatim.
//
// If the caller's context is cancelled before a permit is issued, the
// waiter vacates the queue and no permit is consumed on its behalf. A
// permit issued before cancellation is spent; the operation runs and
// sees the cancelled context.
func (l *Limiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Pending returns the number of callers currently waiting for a permit.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}

// Close releases all waiting callers with ErrClosed. Permits already
// issued are unaffected. Close is idempotent.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.donec)
}

func (l *Limiter) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}

	// Fast path: empty queue and a free slot in the window.
	if l.waiters.Len() == 0 {
		if now := l.clk.Now(); l.readyIn(now) <= 0 {
			l.issue(now)
			l.mu.Unlock()
			return nil
		}
	}

	w := &waiter{headc: make(chan struct{})}
	w.elem = l.waiters.PushBack(w)
	if l.waiters.Front() == w.elem {
		l.promote(w)
	}
	l.mu.Unlock()

	// Wait to reach the front of the queue.
	select {
	case <-ctx.Done():
		l.drop(w)
		return ctx.Err()
	case <-l.donec:
		l.drop(w)
		return ErrClosed
	case <-w.headc:
	}

	// Head of the queue: sleep until the oldest issuance leaves the
	// window, then take the permit.
	for {
		l.mu.Lock()
		if l.closed {
			l.removeLocked(w)
			l.mu.Unlock()
			return ErrClosed
		}
		now := l.clk.Now()
		wait := l.readyIn(now)
		if wait <= 0 {
			l.issue(now)
			l.removeLocked(w)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := l.clk.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.drop(w)
			return ctx.Err()
		case <-l.donec:
			timer.Stop()
			l.drop(w)
			return ErrClosed
		case <-timer.Chan():
		}
	}
}

// readyIn reports how long until the next permit may be issued; zero or
// negative means a permit is available now. Callers hold l.mu.
func (l *Limiter) readyIn(now time.Time) time.Duration {
	oldest := l.stamps[l.head]
	if oldest.IsZero() {
		return 0
	}
	return l.interval - now.Sub(oldest)
}

// issue records a permit issuance, overwriting the oldest stamp.
// Callers hold l.mu.
func (l *Limiter) issue(now time.Time) {
	l.stamps[l.head] = now
	l.head = (l.head + 1) % l.max
}

func (l *Limiter) drop(w *waiter) {
	l.mu.Lock()
	l.removeLocked(w)
	l.mu.Unlock()
}

// removeLocked takes w out of the queue and, if w was at the front,
// promotes the new front. Callers hold l.mu.
func (l *Limiter) removeLocked(w *waiter) {
	if w.elem == nil {
		return
	}
	wasFront := l.waiters.Front() == w.elem
	l.waiters.Remove(w.elem)
	w.elem = nil

	if wasFront {
		if front := l.waiters.Front(); front != nil {
			l.promote(front.Value.(*waiter))
		}
	}
}

func (l *Limiter) promote(w *waiter) {
	if !w.promoted {
		w.promoted = true
		close(w.headc)
	}
}
