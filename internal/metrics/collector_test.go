package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/divider/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, "consumer", log)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Start and event processing", func() {
		It("should process EventRequestServed", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventRequestServed,
				Route:      "/divide",
				Duration:   100 * time.Millisecond,
				StatusCode: http.StatusOK,
			})

			Eventually(func() int64 {
				return collector.Snapshot().Routes["/divide"].Requests
			}).Should(Equal(int64(1)))

			route := collector.Snapshot().Routes["/divide"]
			Expect(route.AvgResponse).To(Equal(100 * time.Millisecond))
			Expect(route.StatusCodes[http.StatusOK]).To(Equal(int64(1)))
		})

		It("should process EventCallSucceeded", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{Type: metrics.EventCallSucceeded, Target: "http://localhost:8070"})

			Eventually(func() int64 {
				return collector.Snapshot().Targets["http://localhost:8070"].Successes
			}).Should(Equal(int64(1)))
		})

		It("should process EventFallbackServed per category", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Target: "provider", Category: "other"})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Target: "provider", Category: "other"})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Target: "provider", Category: "admission_rejected"})

			Eventually(func() map[string]int64 {
				return collector.Snapshot().Targets["provider"].Fallbacks
			}).Should(Equal(map[string]int64{"other": 2, "admission_rejected": 1}))
		})

		It("should process EventBreakerChanged", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{Type: metrics.EventBreakerChanged, Target: "provider", State: "OPEN"})

			Eventually(func() string {
				return collector.Snapshot().Targets["provider"].CircuitState
			}).Should(Equal("OPEN"))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.Emit(metrics.MetricEvent{Type: metrics.EventCallSucceeded, Target: "provider"})
			}

			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return collector.Snapshot().Targets["provider"].Successes
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should not block when the buffer is full", func() {
			small := metrics.NewCollector(1, "consumer", log)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.Emit(metrics.MetricEvent{Type: metrics.EventCallSucceeded, Target: "provider"})
				}
			}()

			Eventually(done).Should(BeClosed())
		})

		It("should be a no-op on a nil collector", func() {
			var c *metrics.Collector
			Expect(func() { c.Emit(metrics.MetricEvent{}) }).NotTo(Panic())
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestServed, Route: "/divide", StatusCode: 200})
			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))

			w := httptest.NewRecorder()
			collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Service).To(Equal("consumer"))
			Expect(snap.TotalRequests).To(Equal(int64(1)))
		})
	})

	Describe("PrometheusHandler", func() {
		It("should expose the divider collectors", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestServed, Route: "/divide", StatusCode: 200})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventFallbackServed, Target: "provider", Category: "other"})
			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))
			Eventually(func() int64 { return collector.Snapshot().Targets["provider"].Fallbacks["other"] }).Should(Equal(int64(1)))

			w := httptest.NewRecorder()
			collector.PrometheusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			body := w.Body.String()
			Expect(body).To(ContainSubstring(`divider_http_requests_total{code="200",route="/divide",service="consumer"} 1`))
			Expect(body).To(ContainSubstring(`divider_upstream_calls_total{outcome="fallback_other",service="consumer",target="provider"} 1`))
		})
	})
})

var _ = Describe("Collector breaker states", func() {
	var (
		collector *metrics.Collector
		mutex     sync.Mutex
		states    map[string]string
	)

	BeforeEach(func() {
		collector = metrics.NewCollector(1, "consumer", slog.New(slog.NewTextHandler(io.Discard, nil)))
		states = map[string]string{"provider": "OPEN"}
		collector.WatchBreakers(func() map[string]string {
			mutex.Lock()
			defer mutex.Unlock()
			out := make(map[string]string, len(states))
			for k, v := range states {
				out[k] = v
			}
			return out
		})
	})

	scrape := func() string {
		server := httptest.NewServer(collector.PrometheusHandler())
		defer server.Close()

		resp, err := http.Get(server.URL)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("should report the live state without any events", func() {
		Expect(collector.Snapshot().Targets["provider"].CircuitState).To(Equal("OPEN"))
		Expect(scrape()).To(ContainSubstring(`divider_circuit_breaker_open{service="consumer",target="provider"} 1`))
	})

	It("should prefer the live state over a stale or reordered event", func() {
		collector.Emit(metrics.MetricEvent{Type: metrics.EventBreakerChanged, Target: "provider", State: "OPEN"})

		mutex.Lock()
		states["provider"] = "CLOSED"
		mutex.Unlock()

		Expect(collector.Snapshot().Targets["provider"].CircuitState).To(Equal("CLOSED"))
		Expect(scrape()).To(ContainSubstring(`divider_circuit_breaker_open{service="consumer",target="provider"} 0`))
	})

	It("should count transitions from events", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		collector.Start(ctx)

		collector.Emit(metrics.MetricEvent{Type: metrics.EventBreakerChanged, Target: "provider", State: "OPEN"})

		Eventually(scrape).Should(ContainSubstring(`divider_circuit_breaker_transitions_total{service="consumer",state="OPEN",target="provider"} 1`))
	})
})
