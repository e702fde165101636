package fallback

import "context"

type Category int

const (
	Other             Category = iota // Any failure that is not an admission rejection
	AdmissionRejected                 // Refused by admission control before dispatch
)

const (
	RejectedResult = -1000
	DefaultResult  = -2000
)

func (c Category) String() string {
	switch c {
	case AdmissionRejected:
		return "admission_rejected"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Select returns the substitute result for a failure category.
// Values outside the enumeration are treated as Other.
func Select(category Category) int {
	if category == AdmissionRejected {
		return RejectedResult
	}
	return DefaultResult
}

// Divider is the division contract shared by the remote client and its fallbacks.
type Divider interface {
	Divide(ctx context.Context, a, b int) (int, error)
}

type rejectedFallback struct{}

func (rejectedFallback) Divide(context.Context, int, int) (int, error) {
	return Select(AdmissionRejected), nil
}

type defaultFallback struct{}

func (defaultFallback) Divide(context.Context, int, int) (int, error) {
	return Select(Other), nil
}

type Factory struct {
	rejected Divider
	fallback Divider
}

func NewFactory() *Factory {
	return &Factory{
		rejected: rejectedFallback{},
		fallback: defaultFallback{},
	}
}

// Create returns the fallback Divider for the given failure category.
func (f *Factory) Create(category Category) Divider {
	if category == AdmissionRejected {
		return f.rejected
	}
	return f.fallback
}
