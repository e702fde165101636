// Package circuitbreaker degrades calls to a failing provider.
//
// Each target gets a breaker with three states:
//
//   - CLOSED: calls pass through, consecutive failures are counted
//   - OPEN: calls are refused until the reset timeout elapses
//   - HALF-OPEN: a single probe call is let through; its outcome closes or reopens the circuit
//
// A refused call is not a provider failure. The dispatcher reports it as an
// admission rejection so the consumer serves the rejection fallback.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.GetBreaker("http://localhost:8070")
//	if !cb.Allow() {
//	    return rejected
//	}
//	if err := call(); err != nil {
//	    cb.RecordFailure()
//	} else {
//	    cb.RecordSuccess()
//	}
package circuitbreaker
