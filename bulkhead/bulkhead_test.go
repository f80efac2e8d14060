package bulkhead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"
)

// waitFor polls until cond returns true.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})

	if b.MaxInFlight() != 10 {
		t.Errorf("MaxInFlight() = %d, want 10", b.MaxInFlight())
	}
	if b.MaxQueueing() != 0 {
		t.Errorf("MaxQueueing() = %d, want 0", b.MaxQueueing())
	}
}

func TestBulkhead_Execute(t *testing.T) {
	b := New(Config{MaxInFlight: 2})

	ran := false
	if err := b.Execute(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if !ran {
		t.Error("operation did not run")
	}
	if b.InFlight() != 0 {
		t.Errorf("InFlight() after completion = %d, want 0", b.InFlight())
	}
}

func TestBulkhead_RejectsWhenSaturated(t *testing.T) {
	b := New(Config{MaxInFlight: 1, MaxQueueing: 1})

	release := make(chan struct{})
	holding := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	queuedDone := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		queuedDone <- b.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()
	waitFor(t, func() bool { return b.Queued() == 1 })

	// In-flight slot and queue slot both taken: reject immediately.
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("rejected operation ran")
		return nil
	})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Execute() at capacity = %v, want ErrRejected", err)
	}

	close(release)
	if err := <-queuedDone; err != nil {
		t.Errorf("queued Execute() = %v, want nil", err)
	}
	wg.Wait()
}

func TestBulkhead_QueueAdmitsFIFO(t *testing.T) {
	b := New(Config{MaxInFlight: 1, MaxQueueing: 2})

	release := make(chan struct{})
	holding := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	order := make(chan string, 2)
	enqueue := func(name string, queued int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(ctx context.Context) error {
				order <- name
				return nil
			})
		}()
		waitFor(t, func() bool { return b.Queued() == queued })
	}
	enqueue("first", 1)
	enqueue("second", 2)

	close(release)
	wg.Wait()
	if got := <-order; got != "first" {
		t.Errorf("first admitted = %q, want \"first\"", got)
	}
	if got := <-order; got != "second" {
		t.Errorf("second admitted = %q, want \"second\"", got)
	}
}

func TestBulkhead_CancelledWaiterVacatesSlot(t *testing.T) {
	b := New(Config{MaxInFlight: 1, MaxQueueing: 1})

	release := make(chan struct{})
	holding := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func(ctx context.Context) error {
			t.Error("cancelled operation ran")
			return nil
		})
	}()
	waitFor(t, func() bool { return b.Queued() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Execute() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}
	waitFor(t, func() bool { return b.Queued() == 0 })

	// The queue slot is free again.
	queuedDone := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		queuedDone <- b.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()
	waitFor(t, func() bool { return b.Queued() == 1 })

	close(release)
	if err := <-queuedDone; err != nil {
		t.Errorf("queued Execute() = %v, want nil", err)
	}
	wg.Wait()
}

func TestBulkhead_InFlightNeverExceedsLimit(t *testing.T) {
	const limit = 4
	b := New(Config{MaxInFlight: limit, MaxQueueing: 100})

	var peak atomic.Int64
	var current atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(ctx context.Context) error {
				cur := current.Inc()
				for {
					p := peak.Load()
					if cur <= p || peak.CompareAndSwap(p, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				current.Dec()
				return nil
			})
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, exceeds limit %d", got, limit)
	}
}

func TestBulkhead_ReleasesOnFailure(t *testing.T) {
	b := New(Config{MaxInFlight: 1})

	errOp := errors.New("op failed")
	if err := b.Execute(context.Background(), func(ctx context.Context) error {
		return errOp
	}); err != errOp {
		t.Fatalf("Execute() = %v, want the operation's error unchanged", err)
	}

	// The slot was released despite the failure.
	if err := b.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
	if b.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", b.InFlight())
	}
}

func TestBulkhead_ZeroQueueRejectsImmediately(t *testing.T) {
	b := New(Config{MaxInFlight: 1, MaxQueueing: 0})

	release := make(chan struct{})
	holding := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	if err := b.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}); !errors.Is(err, ErrRejected) {
		t.Errorf("Execute() = %v, want ErrRejected", err)
	}

	close(release)
	wg.Wait()
}
