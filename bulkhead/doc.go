// Package bulkhead limits concurrent operations behind a bounded queue.
//
// At most MaxInFlight operations run at once. Up to MaxQueueing further
// callers wait in FIFO order for a slot; beyond that, calls are rejected
// immediately with ErrRejected. Every admitted operation runs to
// completion, and the in-flight count is released on any termination:
// success, failure, or cancellation.
//
// # Usage
//
//	bh := bulkhead.New(bulkhead.Config{
//	    MaxInFlight: 10,
//	    MaxQueueing: 32,
//	})
//
//	err := bh.Execute(ctx, func(ctx context.Context) error {
//	    return queryDatabase(ctx)
//	})
//	if errors.Is(err, bulkhead.ErrRejected) {
//	    // both the in-flight slots and the queue were full
//	}
//
// Errors from the operation pass through verbatim.
package bulkhead
