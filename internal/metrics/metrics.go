package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	successes     map[string]int64
	fallbacks     map[string]map[string]int64
	breakerStates map[string]string
	startTime     time.Time
}

type Snapshot struct {
	Service       string                   `json:"service"`
	TotalRequests int64                    `json:"total_requests"`
	Uptime        time.Duration            `json:"uptime"`
	Routes        map[string]RouteMetrics  `json:"routes"`
	Targets       map[string]TargetMetrics `json:"targets,omitempty"`
}

type RouteMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

type TargetMetrics struct {
	Successes    int64            `json:"successes"`
	Fallbacks    map[string]int64 `json:"fallbacks"`
	CircuitState string           `json:"circuit_state,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		successes:     make(map[string]int64),
		fallbacks:     make(map[string]map[string]int64),
		breakerStates: make(map[string]string),
		startTime:     time.Now(),
	}
}

func (m *Metrics) RecordRequest(route string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests[route]++

	m.responseTimes[route] = append(m.responseTimes[route], duration)
	if len(m.responseTimes[route]) > maxSamples {
		m.responseTimes[route] = m.responseTimes[route][1:]
	}

	if m.statusCodes[route] == nil {
		m.statusCodes[route] = make(map[int]int64)
	}
	m.statusCodes[route][statusCode]++
}

func (m *Metrics) RecordCallSuccess(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.successes[target]++
}

func (m *Metrics) RecordFallback(target, category string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fallbacks[target] == nil {
		m.fallbacks[target] = make(map[string]int64)
	}
	m.fallbacks[target][category]++
}

func (m *Metrics) UpdateBreakerState(target, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[target] = state
}

func (m *Metrics) Snapshot(service string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Service: service,
		Uptime:  time.Since(m.startTime),
		Routes:  make(map[string]RouteMetrics, len(m.requests)),
	}

	for route, count := range m.requests {
		snap.TotalRequests += count

		rm := RouteMetrics{
			Requests:    count,
			StatusCodes: copyCounts(m.statusCodes[route]),
		}

		durations := m.responseTimes[route]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rm
	}

	targets := make(map[string]bool)
	for t := range m.successes {
		targets[t] = true
	}
	for t := range m.fallbacks {
		targets[t] = true
	}
	for t := range m.breakerStates {
		targets[t] = true
	}

	if len(targets) > 0 {
		snap.Targets = make(map[string]TargetMetrics, len(targets))
	}
	for t := range targets {
		fallbacks := make(map[string]int64, len(m.fallbacks[t]))
		for k, v := range m.fallbacks[t] {
			fallbacks[k] = v
		}

		snap.Targets[t] = TargetMetrics{
			Successes:    m.successes[t],
			Fallbacks:    fallbacks,
			CircuitState: m.breakerStates[t],
		}
	}

	return snap
}

func copyCounts[K comparable](in map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
