// Package token manages the persisted bearer credential used to scrape
// the metrics source.
//
// The credential lives in a JSON store file ({token_string, id,
// expiration}) that is only ever replaced atomically (temp file +
// rename). Manager.Ensure validates the stored token against the token
// service, renews it when less than the configured window of lifetime
// remains, and never returns an expired token — the caller can hand
// the result straight to the scraper.
package token
