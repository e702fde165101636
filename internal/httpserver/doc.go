// Package httpserver wraps net/http with address validation, fixed timeouts,
// graceful shutdown and a request ID middleware.
package httpserver
