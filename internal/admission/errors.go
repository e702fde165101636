package admission

import "fmt"

type Reason string

const (
	ReasonRateLimited        Reason = "rate_limited"
	ReasonConcurrencyLimited Reason = "concurrency_limited"
	ReasonDegraded           Reason = "degraded"
)

// RejectedError reports that a call was refused before it reached the provider.
type RejectedError struct {
	Resource string
	Reason   Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("admission rejected for %q: %s", e.Resource, e.Reason)
}
