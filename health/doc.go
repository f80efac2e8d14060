// Package health exposes the state of resilience policies as health
// checks.
//
// A circuit breaker or bulkhead already knows whether its protected
// resource is struggling; this package turns that knowledge into
// [Checker] results that can feed a readiness endpoint or an external
// health aggregator.
//
//	agg := health.NewAggregator()
//	agg.Register("payments-breaker", health.BreakerChecker(cb))
//	agg.Register("db-bulkhead", health.BulkheadChecker(bh))
//
//	result := agg.Check(ctx) // worst-of status across all checkers
package health
