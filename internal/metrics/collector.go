package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestServed  EventType = "request_served"
	EventCallSucceeded  EventType = "call_succeeded"
	EventFallbackServed EventType = "fallback_served"
	EventBreakerChanged EventType = "breaker_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Route      string
	Target     string
	Category   string
	State      string
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	service  string
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *Exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, service string, logger *slog.Logger) *Collector {
	return &Collector{
		service:  service,
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: NewExporter(service),
		logger:   logger,
	}
}

// WatchBreakers makes states the source of truth for circuit state in
// snapshots and in the Prometheus gauge. Both read it on demand, so dropped
// or reordered breaker events cannot leave them stale.
func (c *Collector) WatchBreakers(states BreakerStates) {
	if c == nil {
		return
	}
	c.exporter.breakers.watch(states)
}

// Emit queues an event without blocking. Events are dropped when the buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestServed:
		c.metrics.RecordRequest(event.Route, event.Duration, event.StatusCode)
		c.exporter.observeRequest(event.Route, event.Duration, event.StatusCode)

	case EventCallSucceeded:
		c.metrics.RecordCallSuccess(event.Target)
		c.exporter.observeCall(event.Target, outcomeSuccess)

	case EventFallbackServed:
		c.metrics.RecordFallback(event.Target, event.Category)
		c.exporter.observeCall(event.Target, outcomeFallbackPrefix+event.Category)

	case EventBreakerChanged:
		c.metrics.UpdateBreakerState(event.Target, event.State)
		c.exporter.observeTransition(event.Target, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	snap := c.metrics.Snapshot(c.service)

	states := c.exporter.breakers.current()
	if len(states) > 0 && snap.Targets == nil {
		snap.Targets = make(map[string]TargetMetrics, len(states))
	}
	for target, state := range states {
		tm := snap.Targets[target]
		if tm.Fallbacks == nil {
			tm.Fallbacks = make(map[string]int64)
		}
		tm.CircuitState = state
		snap.Targets[target] = tm
	}

	return snap
}
