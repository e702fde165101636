// Package fallback maps a failed remote division call to a fixed substitute result.
//
// The dispatch layer classifies every failure into a Category. A Factory hands out
// the Divider registered for that category:
//
//   - AdmissionRejected: the call was refused before reaching the provider, result -1000
//   - Other: any other failure (provider error, timeout, network), result -2000
//
// Usage:
//
//	factory := fallback.NewFactory()
//	value, _ := factory.Create(fallback.AdmissionRejected).Divide(ctx, a, b)
package fallback
