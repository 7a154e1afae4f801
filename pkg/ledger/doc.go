// Package ledger keeps the append-mostly record of every delivery attempt.
//
// The ledger serves three purposes: idempotency (at most one non-terminal
// attempt per notification and channel, checked before any resend), audit
// (every attempt and its terminal outcome survive), and usage statistics
// (cost and segment totals per user). Provider status webhooks feed back
// into it asynchronously via UpdateByProviderMessageID.
//
// It also tracks the last score seen per (user, subject) so the dispatcher
// can gate repeat notifications on novelty and score improvement.
package ledger
