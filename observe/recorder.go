package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/shield/breaker"
	"github.com/jonwraymond/shield/metrics"
)

// Recorder publishes monitor snapshots to OpenTelemetry instruments. The
// sink functions it returns are intended as OnSnapshot callbacks; each
// snapshot's counters are added as deltas, and queue latency is recorded
// as the window's mean in milliseconds.
type Recorder struct {
	bulkheadEnqueued    metric.Int64Counter
	bulkheadStarted     metric.Int64Counter
	bulkheadCompleted   metric.Int64Counter
	bulkheadInterrupted metric.Int64Counter
	bulkheadRejected    metric.Int64Counter
	bulkheadLatency     metric.Float64Histogram

	limiterEnqueued    metric.Int64Counter
	limiterStarted     metric.Int64Counter
	limiterInterrupted metric.Int64Counter
	limiterLatency     metric.Float64Histogram

	breakerSuccesses   metric.Int64Counter
	breakerFailures    metric.Int64Counter
	breakerRejected    metric.Int64Counter
	breakerTransitions metric.Int64Counter
}

// NewRecorder creates a Recorder with instruments registered on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	if r.bulkheadEnqueued, err = meter.Int64Counter(
		"shield.bulkhead.enqueued",
		metric.WithDescription("Calls that entered the bulkhead"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.bulkheadStarted, err = meter.Int64Counter(
		"shield.bulkhead.started",
		metric.WithDescription("Calls admitted into the in-flight region"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.bulkheadCompleted, err = meter.Int64Counter(
		"shield.bulkhead.completed",
		metric.WithDescription("Admitted operations that terminated"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.bulkheadInterrupted, err = meter.Int64Counter(
		"shield.bulkhead.interrupted",
		metric.WithDescription("Calls cancelled while queued"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.bulkheadRejected, err = meter.Int64Counter(
		"shield.bulkhead.rejected",
		metric.WithDescription("Calls refused at capacity"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.bulkheadLatency, err = meter.Float64Histogram(
		"shield.bulkhead.queue_latency_ms",
		metric.WithDescription("Mean enqueue-to-admission delay per window"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if r.limiterEnqueued, err = meter.Int64Counter(
		"shield.ratelimit.enqueued",
		metric.WithDescription("Calls that entered the rate limiter"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.limiterStarted, err = meter.Int64Counter(
		"shield.ratelimit.started",
		metric.WithDescription("Calls that received a permit"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.limiterInterrupted, err = meter.Int64Counter(
		"shield.ratelimit.interrupted",
		metric.WithDescription("Calls cancelled while waiting for a permit"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.limiterLatency, err = meter.Float64Histogram(
		"shield.ratelimit.queue_latency_ms",
		metric.WithDescription("Mean enqueue-to-permit delay per window"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if r.breakerSuccesses, err = meter.Int64Counter(
		"shield.breaker.successes",
		metric.WithDescription("Calls that completed without error"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.breakerFailures, err = meter.Int64Counter(
		"shield.breaker.failures",
		metric.WithDescription("Calls that ran and failed"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.breakerRejected, err = meter.Int64Counter(
		"shield.breaker.rejected",
		metric.WithDescription("Calls refused while the circuit was open"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if r.breakerTransitions, err = meter.Int64Counter(
		"shield.breaker.transitions",
		metric.WithDescription("State transitions by target state"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// OnBulkhead returns an OnSnapshot sink publishing bulkhead windows under
// the given policy name.
func (r *Recorder) OnBulkhead(name string) func(metrics.BulkheadSnapshot) {
	opt := metric.WithAttributes(attribute.String("policy.name", name))
	return func(s metrics.BulkheadSnapshot) {
		ctx := context.Background()
		r.bulkheadEnqueued.Add(ctx, int64(s.Enqueued), opt)
		r.bulkheadStarted.Add(ctx, int64(s.Started), opt)
		r.bulkheadCompleted.Add(ctx, int64(s.Completed), opt)
		r.bulkheadInterrupted.Add(ctx, int64(s.Interrupted), opt)
		r.bulkheadRejected.Add(ctx, int64(s.Rejected), opt)
		if s.QueueLatency.Count > 0 {
			r.bulkheadLatency.Record(ctx, s.QueueLatency.Mean()/1e6, opt)
		}
	}
}

// OnLimiter returns an OnSnapshot sink publishing rate limiter windows
// under the given policy name.
func (r *Recorder) OnLimiter(name string) func(metrics.LimiterSnapshot) {
	opt := metric.WithAttributes(attribute.String("policy.name", name))
	return func(s metrics.LimiterSnapshot) {
		ctx := context.Background()
		r.limiterEnqueued.Add(ctx, int64(s.Enqueued), opt)
		r.limiterStarted.Add(ctx, int64(s.Started), opt)
		r.limiterInterrupted.Add(ctx, int64(s.Interrupted), opt)
		if s.QueueLatency.Count > 0 {
			r.limiterLatency.Record(ctx, s.QueueLatency.Mean()/1e6, opt)
		}
	}
}

// OnBreaker returns an OnSnapshot sink publishing breaker windows under
// the given policy name.
func (r *Recorder) OnBreaker(name string) func(metrics.BreakerSnapshot) {
	policy := attribute.String("policy.name", name)
	opt := metric.WithAttributes(policy)
	toOpen := metric.WithAttributes(policy, attribute.String("breaker.state", breaker.StateOpen.String()))
	toHalfOpen := metric.WithAttributes(policy, attribute.String("breaker.state", breaker.StateHalfOpen.String()))
	toClosed := metric.WithAttributes(policy, attribute.String("breaker.state", breaker.StateClosed.String()))

	return func(s metrics.BreakerSnapshot) {
		ctx := context.Background()
		r.breakerSuccesses.Add(ctx, int64(s.Successes), opt)
		r.breakerFailures.Add(ctx, int64(s.Failures), opt)
		r.breakerRejected.Add(ctx, int64(s.Rejected), opt)
		r.breakerTransitions.Add(ctx, int64(s.Opened), toOpen)
		r.breakerTransitions.Add(ctx, int64(s.HalfOpened), toHalfOpen)
		r.breakerTransitions.Add(ctx, int64(s.Closed), toClosed)
	}
}
