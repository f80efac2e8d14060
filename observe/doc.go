// Package observe bridges policy metrics and state changes into
// OpenTelemetry and zap.
//
// The policies themselves only expose callbacks; this package supplies
// ready-made sinks for them:
//
//   - [Recorder] publishes monitor snapshots as OpenTelemetry counters
//     and histograms.
//   - [StateLogger] and the snapshot loggers turn callbacks into
//     structured zap log entries.
//   - The exporters subpackage builds metric readers (stdout, prometheus,
//     otlp, none) for wiring a meter provider.
//
// # Usage
//
//	reader, _ := exporters.NewMetricsReader(ctx, "prometheus")
//	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	rec, _ := observe.NewRecorder(provider.Meter("shield"))
//
//	mon := metrics.NewBulkheadMonitor(bh, metrics.BulkheadMonitorConfig{
//	    OnSnapshot: rec.OnBulkhead("payments"),
//	})
package observe
