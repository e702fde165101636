// Package division holds the division request type, request parsing and
// the integer division performed by the provider.
package division
