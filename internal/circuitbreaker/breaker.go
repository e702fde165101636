package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Calls pass through
	StateOpen                  // Calls refused
	StateHalfOpen              // One probe in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// StateChangeFunc is invoked outside the breaker lock after every transition.
// Racing transitions may be reported out of order; State is authoritative.
type StateChangeFunc func(target string, from, to State)

type CircuitBreaker struct {
	mutex            sync.Mutex
	target           string
	state            State
	failures         int
	openedAt         time.Time
	probing          bool
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
	onChange         StateChangeFunc
}

func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}

	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     timeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. In HALF-OPEN only the first caller
// is let through until that probe records its outcome.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()

	var (
		allowed bool
		from    = cb.state
	)

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.probing = true
			allowed = true
		}
	case StateHalfOpen:
		if !cb.probing {
			cb.probing = true
			allowed = true
		}
	default:
		allowed = true
	}

	to := cb.state
	cb.mutex.Unlock()

	cb.notify(from, to)
	return allowed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()

	from := cb.state
	cb.failures++
	cb.probing = false

	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}

	to := cb.state
	cb.mutex.Unlock()

	cb.notify(from, to)
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()

	from := cb.state
	cb.failures = 0
	cb.probing = false
	cb.state = StateClosed

	cb.mutex.Unlock()

	cb.notify(from, StateClosed)
}

// Release ends a call without judging the target, e.g. when the caller gave
// up. A half-open probe slot is freed and the failure count is untouched.
func (cb *CircuitBreaker) Release() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.probing = false
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to || cb.onChange == nil {
		return
	}
	cb.onChange(cb.target, from, to)
}
