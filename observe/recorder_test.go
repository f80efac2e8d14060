package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/shield/metrics"
)

// collectSum reads the current value of an Int64 counter by name.
func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rec, err := NewRecorder(provider.Meter("shield-test"))
	if err != nil {
		t.Fatalf("NewRecorder() error: %v", err)
	}
	return rec, reader
}

func TestRecorder_OnBulkhead(t *testing.T) {
	rec, reader := newTestRecorder(t)
	sink := rec.OnBulkhead("payments")

	sink(metrics.BulkheadSnapshot{
		Interval:    time.Second,
		Enqueued:    10,
		Started:     8,
		Completed:   7,
		Interrupted: 2,
		Rejected:    1,
	})
	sink(metrics.BulkheadSnapshot{
		Interval: time.Second,
		Enqueued: 5,
		Started:  5,
	})

	if got := collectSum(t, reader, "shield.bulkhead.enqueued"); got != 15 {
		t.Errorf("enqueued = %d, want 15", got)
	}
	if got := collectSum(t, reader, "shield.bulkhead.started"); got != 13 {
		t.Errorf("started = %d, want 13", got)
	}
	if got := collectSum(t, reader, "shield.bulkhead.completed"); got != 7 {
		t.Errorf("completed = %d, want 7", got)
	}
	if got := collectSum(t, reader, "shield.bulkhead.interrupted"); got != 2 {
		t.Errorf("interrupted = %d, want 2", got)
	}
	if got := collectSum(t, reader, "shield.bulkhead.rejected"); got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
}

func TestRecorder_OnLimiter(t *testing.T) {
	rec, reader := newTestRecorder(t)
	sink := rec.OnLimiter("upstream")

	sink(metrics.LimiterSnapshot{
		Interval:    time.Second,
		Enqueued:    20,
		Started:     18,
		Interrupted: 2,
	})

	if got := collectSum(t, reader, "shield.ratelimit.enqueued"); got != 20 {
		t.Errorf("enqueued = %d, want 20", got)
	}
	if got := collectSum(t, reader, "shield.ratelimit.started"); got != 18 {
		t.Errorf("started = %d, want 18", got)
	}
	if got := collectSum(t, reader, "shield.ratelimit.interrupted"); got != 2 {
		t.Errorf("interrupted = %d, want 2", got)
	}
}

func TestRecorder_OnBreaker(t *testing.T) {
	rec, reader := newTestRecorder(t)
	sink := rec.OnBreaker("payments")

	sink(metrics.BreakerSnapshot{
		Interval:   time.Second,
		Successes:  30,
		Failures:   5,
		Rejected:   12,
		Opened:     1,
		HalfOpened: 1,
		Closed:     1,
	})

	if got := collectSum(t, reader, "shield.breaker.successes"); got != 30 {
		t.Errorf("successes = %d, want 30", got)
	}
	if got := collectSum(t, reader, "shield.breaker.failures"); got != 5 {
		t.Errorf("failures = %d, want 5", got)
	}
	if got := collectSum(t, reader, "shield.breaker.rejected"); got != 12 {
		t.Errorf("rejected = %d, want 12", got)
	}
	// Transitions are attributed by target state and sum to 3.
	if got := collectSum(t, reader, "shield.breaker.transitions"); got != 3 {
		t.Errorf("transitions = %d, want 3", got)
	}
}
