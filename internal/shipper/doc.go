// Package shipper delivers the enriched corpus to the time-series
// sink's bulk-import endpoint in a single request. Delivery is
// all-or-nothing: the sink either accepts the whole batch (200 or 204)
// or the run fails.
package shipper
