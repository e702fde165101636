package dispatch

import (
	"errors"
	"fmt"

	"github.com/angeloszaimis/divider/internal/admission"
	"github.com/angeloszaimis/divider/internal/fallback"
)

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// Classify maps a dispatch failure to its fallback category. Only admission
// refusals are AdmissionRejected; everything else, including a nil error, is Other.
func Classify(err error) fallback.Category {
	var rejected *admission.RejectedError
	if errors.As(err, &rejected) {
		return fallback.AdmissionRejected
	}
	return fallback.Other
}
