// Package metrics provides windowed metrics for the resilience policies.
//
// A monitor wraps a policy's Execute and aggregates counters and latency
// histograms over fixed flush intervals. At each interval boundary the
// window is atomically read and reset, stamped with the elapsed wall
// interval, and delivered to the OnSnapshot callback. On Close a final
// snapshot covering the trailing partial interval is delivered.
//
// Snapshots are addable: counters add component-wise, histograms add
// bucket-wise, and intervals sum. Folding a stream of snapshots with Add
// therefore yields a consistent cumulative view:
//
//	var total metrics.BulkheadSnapshot
//	mon := metrics.NewBulkheadMonitor(bh, metrics.BulkheadMonitorConfig{
//	    FlushInterval: 10 * time.Second,
//	    OnSnapshot: func(s metrics.BulkheadSnapshot) {
//	        total = total.Add(s)
//	    },
//	})
//	defer mon.Close()
//
// # Counters
//
// A task is enqueued when Execute is entered, started when the policy
// admits it and the operation begins, and interrupted when the caller is
// cancelled while still waiting for admission. Started plus interrupted
// never exceeds enqueued, and once no calls are in flight every enqueued
// task is accounted for. The bulkhead monitor additionally counts
// completions (any termination of an admitted operation) and rejections,
// and samples the in-flight and queue-depth gauges into histograms.
package metrics
