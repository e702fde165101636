// Package config loads the provider and consumer configuration from a YAML file
// and environment variables, validates it, and can watch the file for changes.
package config
