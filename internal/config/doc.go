// Package config loads the relay configuration file (config.yaml).
//
// Top-level types:
//   - Config — token_file, lock_file, source, token_service, sink,
//     labels, timeout, renew_within, debug, debug_dir
//   - SourceConfig — url, insecure_skip_verify
//   - TokenServiceConfig — validate_url, renew_url
//   - SinkConfig — url
//
// Load(path) reads the YAML file, applies defaults (30s timeout, 1h
// renew window, lock_file derived from token_file), then validates
// required fields. Every key of the injected label set must be a valid
// Prometheus label name; validation failures surface before any
// network call is made.
package config
