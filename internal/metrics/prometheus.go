package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess        = "success"
	outcomeFallbackPrefix = "fallback_"
)

// Exporter mirrors collected events into Prometheus collectors on a private registry.
type Exporter struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	calls        *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	breakers     *breakerCollector
}

func NewExporter(service string) *Exporter {
	constLabels := prometheus.Labels{"service": service}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "divider",
			Name:        "http_requests_total",
			Help:        "Requests served, by route and status code.",
			ConstLabels: constLabels,
		}, []string{"route", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "divider",
			Name:        "http_request_duration_seconds",
			Help:        "Request latency, by route.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "divider",
			Name:        "upstream_calls_total",
			Help:        "Upstream division calls, by target and outcome.",
			ConstLabels: constLabels,
		}, []string{"target", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "divider",
			Name:        "circuit_breaker_transitions_total",
			Help:        "Circuit breaker transitions, by target and new state.",
			ConstLabels: constLabels,
		}, []string{"target", "state"}),
		breakers: &breakerCollector{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName("divider", "", "circuit_breaker_open"),
				"1 when the circuit for a target is not closed.",
				[]string{"target"}, constLabels),
		},
	}

	e.registry.MustRegister(e.requests, e.durations, e.calls, e.transitions, e.breakers)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) observeRequest(route string, duration time.Duration, statusCode int) {
	e.requests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	e.durations.WithLabelValues(route).Observe(duration.Seconds())
}

func (e *Exporter) observeCall(target, outcome string) {
	e.calls.WithLabelValues(target, outcome).Inc()
}

func (e *Exporter) observeTransition(target, state string) {
	e.transitions.WithLabelValues(target, state).Inc()
}

// BreakerStates returns the current circuit state name per target.
type BreakerStates func() map[string]string

// breakerCollector reports circuit state at scrape time.
type breakerCollector struct {
	desc   *prometheus.Desc
	mutex  sync.RWMutex
	states BreakerStates
}

func (b *breakerCollector) watch(states BreakerStates) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.states = states
}

func (b *breakerCollector) current() map[string]string {
	b.mutex.RLock()
	states := b.states
	b.mutex.RUnlock()

	if states == nil {
		return nil
	}
	return states()
}

func (b *breakerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- b.desc
}

func (b *breakerCollector) Collect(ch chan<- prometheus.Metric) {
	for target, state := range b.current() {
		value := 1.0
		if state == "CLOSED" {
			value = 0
		}
		ch <- prometheus.MustNewConstMetric(b.desc, prometheus.GaugeValue, value, target)
	}
}
