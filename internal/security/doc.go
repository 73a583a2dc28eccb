// Package security inspects the TLS certificate of the metrics source.
// The scrape deliberately skips certificate verification for the
// internal endpoint, so the inspector provides the diagnostics that
// verification would otherwise have surfaced: issuer, expiry, and days
// of validity left. It runs in debug mode only.
package security
