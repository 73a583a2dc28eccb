// Package relabel implements the label injection engine: a streaming,
// single-pass transform over Prometheus exposition text that merges a
// fixed identity label set into every sample line and normalizes
// timestamps.
//
// Guarantees:
//   - comment and blank lines are byte-identical and keep their
//     positions
//   - every output sample carries all fixed labels; an injected value
//     always overrides a colliding scraped one
//   - the merged label block is serialized by one canonical routine in
//     sorted key order, so output is deterministic across runs
//   - a sample whose value segment does not already end in a unix
//     timestamp gets the current time in seconds appended
//   - re-applying the transform to its own output changes nothing
package relabel
