// Package logger builds the slog loggers used by the provider and consumer.
// Production loggers write JSON, every other environment writes text. Each
// logger is tagged with the service name and environment.
package logger
