// Package handler implements the HTTP handlers of the provider and consumer services.
// Both expose GET /divide; the provider computes the quotient locally while the
// consumer asks the provider through a client.DivisionService.
package handler
