package ratelimit_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/shield/ratelimit"
)

func ExampleNew() {
	rl := ratelimit.New(ratelimit.Config{
		Max:      100,
		Interval: time.Second,
	})
	defer rl.Close()

	ctx := context.Background()
	err := rl.Execute(ctx, func(ctx context.Context) error {
		// Simulated call to a paced downstream service
		return nil
	})

	if err == nil {
		fmt.Println("Operation ran within the rate limit")
	}
	// Output:
	// Operation ran within the rate limit
}

func ExampleLimiter_Execute_cancelled() {
	rl := ratelimit.New(ratelimit.Config{
		Max:      1,
		Interval: time.Minute,
	})
	defer rl.Close()

	// Spend the window's only permit.
	_ = rl.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	// The next caller would wait a minute; give it a cancelled context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	fmt.Println("Waiter error:", err)
	// Output:
	// Waiter error: context canceled
}
