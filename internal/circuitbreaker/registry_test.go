package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/divider/internal/circuitbreaker"
)

type transition struct {
	target   string
	from, to circuitbreaker.State
}

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(5, 30*time.Second)
	})

	Describe("GetBreaker", func() {
		It("should create a new breaker for an unknown target", func() {
			cb := registry.GetBreaker("http://localhost:8070")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same target", func() {
			cb1 := registry.GetBreaker("http://localhost:8070")
			cb2 := registry.GetBreaker("http://localhost:8070")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different targets", func() {
			cb1 := registry.GetBreaker("http://localhost:8070")
			cb2 := registry.GetBreaker("http://localhost:8071")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should use the registry threshold for new breakers", func() {
			registry = circuitbreaker.NewRegistry(2, time.Minute)
			cb := registry.GetBreaker("http://localhost:8070")
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("WithClock", func() {
		It("should drive the reset timeout from the injected clock", func() {
			now := time.Unix(1_700_000_000, 0)
			registry = circuitbreaker.NewRegistry(1, 10*time.Second,
				circuitbreaker.WithClock(func() time.Time { return now }))

			cb := registry.GetBreaker("http://localhost:8070")
			cb.RecordFailure()
			Expect(cb.Allow()).To(BeFalse())

			now = now.Add(9 * time.Second)
			Expect(cb.Allow()).To(BeFalse())

			now = now.Add(time.Second)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})
	})

	Describe("WithStateChange", func() {
		It("should report every transition with its target", func() {
			var (
				mutex sync.Mutex
				seen  []transition
				now   = time.Unix(1_700_000_000, 0)
			)
			registry = circuitbreaker.NewRegistry(1, time.Second,
				circuitbreaker.WithClock(func() time.Time { return now }),
				circuitbreaker.WithStateChange(func(target string, from, to circuitbreaker.State) {
					mutex.Lock()
					defer mutex.Unlock()
					seen = append(seen, transition{target, from, to})
				}))

			cb := registry.GetBreaker("provider")
			cb.RecordFailure()
			now = now.Add(2 * time.Second)
			cb.Allow()
			cb.RecordSuccess()
			cb.RecordSuccess()

			Expect(seen).To(Equal([]transition{
				{"provider", circuitbreaker.StateClosed, circuitbreaker.StateOpen},
				{"provider", circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen},
				{"provider", circuitbreaker.StateHalfOpen, circuitbreaker.StateClosed},
			}))
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent GetBreaker calls safely", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					Expect(registry.GetBreaker("http://localhost:8070")).NotTo(BeNil())
				}()
			}
			wg.Wait()

			Expect(registry.Stats()).To(HaveLen(1))
		})

		It("should handle concurrent outcomes on the same breaker", func() {
			cb := registry.GetBreaker("http://localhost:8070")

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					cb.RecordFailure()
				}()
				go func() {
					defer wg.Done()
					cb.RecordSuccess()
				}()
			}
			wg.Wait()

			Expect(cb.State()).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("Stats", func() {
		It("should return the state of all breakers", func() {
			registry.GetBreaker("http://localhost:8070")
			cb2 := registry.GetBreaker("http://localhost:8071")
			for i := 0; i < 5; i++ {
				cb2.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["http://localhost:8070"]).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["http://localhost:8071"]).To(Equal(circuitbreaker.StateOpen))
		})
	})
})
