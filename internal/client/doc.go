// Package client exposes the provider's division endpoint as a Go interface.
//
// New returns the remote implementation backed by a dispatch.Dispatcher.
// WithFallback wraps any DivisionService so that failures are replaced by the
// fallback value for their category instead of being returned to the caller.
package client
