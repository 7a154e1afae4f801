// Package dispatch decides what happens to an evaluated notification
// event: suppress it, deliver it now, hold it until quiet hours end, or
// queue it into a digest bucket — and performs the actual channel fan-out
// for everything that gets delivered.
//
// Gates run in a fixed order: channel enablement, score thresholds,
// novelty, score improvement. Events passing all gates are routed by the
// user's effective preference. Time-triggered work (quiet-hour releases,
// digest boundaries) is driven by a ticker-based Scheduler rather than
// recursive delayed callbacks, which keeps digest flushes idempotent and
// queued events cancellable.
//
// Digest flushes for different users run in parallel; a single user's
// bucket is flushed by at most one goroutine at a time, and draining the
// bucket is atomic with the send, so a retried tick cannot double-send.
// Deliveries to the same destination are serialized to avoid provider-side
// ordering and rate-limit issues.
package dispatch
