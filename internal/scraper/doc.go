// Package scraper performs the single authenticated fetch of raw
// Prometheus exposition text from the metrics source. The bearer token
// it is handed has already been validated by the token manager; the
// scraper never inspects or refreshes it.
package scraper
