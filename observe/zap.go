package observe

import (
	"go.uber.org/zap"

	"github.com/jonwraymond/shield/breaker"
	"github.com/jonwraymond/shield/metrics"
)

// StateLogger returns an OnStateChange callback that logs circuit state
// transitions under the given policy name. Transitions into the open
// state log at warn level, everything else at info.
func StateLogger(logger *zap.Logger, name string) func(breaker.State) {
	logger = logger.With(zap.String("policy", name))
	return func(s breaker.State) {
		if s == breaker.StateOpen {
			logger.Warn("circuit opened", zap.Stringer("state", s))
			return
		}
		logger.Info("circuit state changed", zap.Stringer("state", s))
	}
}

// BulkheadSnapshotLogger returns an OnSnapshot sink that logs bulkhead
// windows at debug level.
func BulkheadSnapshotLogger(logger *zap.Logger, name string) func(metrics.BulkheadSnapshot) {
	logger = logger.With(zap.String("policy", name))
	return func(s metrics.BulkheadSnapshot) {
		logger.Debug("bulkhead window",
			zap.Duration("interval", s.Interval),
			zap.Uint64("enqueued", s.Enqueued),
			zap.Uint64("started", s.Started),
			zap.Uint64("completed", s.Completed),
			zap.Uint64("interrupted", s.Interrupted),
			zap.Uint64("rejected", s.Rejected),
			zap.Float64("queue_latency_mean_ms", s.QueueLatency.Mean()/1e6),
		)
	}
}

// LimiterSnapshotLogger returns an OnSnapshot sink that logs rate
// limiter windows at debug level.
func LimiterSnapshotLogger(logger *zap.Logger, name string) func(metrics.LimiterSnapshot) {
	logger = logger.With(zap.String("policy", name))
	return func(s metrics.LimiterSnapshot) {
		logger.Debug("rate limiter window",
			zap.Duration("interval", s.Interval),
			zap.Uint64("enqueued", s.Enqueued),
			zap.Uint64("started", s.Started),
			zap.Uint64("interrupted", s.Interrupted),
			zap.Float64("queue_latency_mean_ms", s.QueueLatency.Mean()/1e6),
		)
	}
}

// BreakerSnapshotLogger returns an OnSnapshot sink that logs breaker
// windows at debug level.
func BreakerSnapshotLogger(logger *zap.Logger, name string) func(metrics.BreakerSnapshot) {
	logger = logger.With(zap.String("policy", name))
	return func(s metrics.BreakerSnapshot) {
		logger.Debug("breaker window",
			zap.Duration("interval", s.Interval),
			zap.Uint64("successes", s.Successes),
			zap.Uint64("failures", s.Failures),
			zap.Uint64("rejected", s.Rejected),
			zap.Uint64("opened", s.Opened),
			zap.Uint64("half_opened", s.HalfOpened),
			zap.Uint64("closed", s.Closed),
		)
	}
}
