// Package dispatch sends division calls from the consumer to the provider and
// classifies their failures.
//
// A call passes admission control and the target's circuit breaker before the
// HTTP request is made. Refusals surface as *admission.RejectedError; provider
// error responses as *ProviderError; transport failures as wrapped errors.
// Classify reduces any of these to a fallback.Category. No retries are made.
package dispatch
