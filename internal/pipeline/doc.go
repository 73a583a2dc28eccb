// Package pipeline orchestrates one relay run: ensure a valid bearer
// token, scrape the source, inject the fixed label set, push to the
// sink. Stages run strictly in sequence and the first failure aborts
// the run — there is no partial success and no retry; the next
// scheduled invocation starts fresh.
//
// The pipeline holds an advisory file lock for the whole run so two
// overlapping invocations cannot race on the persisted token file.
// Stage errors wrap one of the failure-class sentinels (ErrConfig,
// ErrToken, ErrNetwork, ErrSinkRejected) for the top-level handler.
package pipeline
