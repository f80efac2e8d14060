// Package clock provides the time capability consumed by the resilience
// policies.
//
// Every policy that sleeps, ticks, or stamps intervals does so through a
// [Clock] rather than the package-level time functions. Production code
// uses [New], which returns the system clock; tests inject [NewFake] and
// advance time manually, which makes every timed scenario in this module
// deterministic.
//
// # Usage
//
//	clk := clock.New()
//
//	// Cancellable sleep: returns early with ctx.Err() on cancellation.
//	if err := clock.Sleep(ctx, clk, time.Second); err != nil {
//	    return err
//	}
//
// In tests:
//
//	clk := clock.NewFake()
//	// ... start the code under test ...
//	clk.BlockUntil(1) // wait for the sleeper to register
//	clk.Advance(time.Second)
package clock
