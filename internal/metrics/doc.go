// Package metrics collects request and upstream-call metrics for both services.
//
// A Collector runs in its own goroutine and consumes MetricEvents from a buffered
// channel. Handlers emit events without blocking; if the buffer is full the event
// is dropped. Collected data is exposed two ways:
//
//   - Handler: a JSON Snapshot with per-route latency percentiles and status codes,
//     plus per-target successes, fallbacks by category and circuit state
//   - PrometheusHandler: the same signals as Prometheus counters, a histogram and a gauge
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, "consumer", logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventFallbackServed,
//		Target:   "http://localhost:8070",
//		Category: "other",
//	})
//
// The collector drains buffered events when its context is cancelled.
package metrics
