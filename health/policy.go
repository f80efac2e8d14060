package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/shield/breaker"
	"github.com/jonwraymond/shield/bulkhead"
)

// BreakerChecker reports the circuit state as a health status: closed is
// healthy, half-open is degraded (recovery in progress), open is
// unhealthy.
func BreakerChecker(cb *breaker.Breaker) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		stats := cb.Stats()
		var status Status
		switch stats.State {
		case breaker.StateClosed:
			status = StatusHealthy
		case breaker.StateHalfOpen:
			status = StatusDegraded
		default:
			status = StatusUnhealthy
		}
		return Result{
			Status:  status,
			Message: fmt.Sprintf("circuit %s", stats.State),
			Details: map[string]any{
				"state":                stats.State.String(),
				"consecutive_failures": stats.ConsecutiveFailures,
				"rejected":             stats.Rejected,
			},
		}
	})
}

// BulkheadChecker reports bulkhead saturation: free in-flight slots are
// healthy, a non-empty queue is degraded, and a full queue (new calls
// being rejected) is unhealthy.
func BulkheadChecker(bh *bulkhead.Bulkhead) Checker {
	return CheckerFunc(func(ctx context.Context) Result {
		inFlight := bh.InFlight()
		queued := bh.Queued()

		status := StatusHealthy
		switch {
		case inFlight >= bh.MaxInFlight() && queued >= bh.MaxQueueing():
			status = StatusUnhealthy
		case queued > 0:
			status = StatusDegraded
		}
		return Result{
			Status:  status,
			Message: fmt.Sprintf("%d in flight, %d queued", inFlight, queued),
			Details: map[string]any{
				"in_flight":     inFlight,
				"queued":        queued,
				"max_in_flight": bh.MaxInFlight(),
				"max_queueing":  bh.MaxQueueing(),
			},
		}
	})
}
