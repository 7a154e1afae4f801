// Package sms implements the SMS delivery adapter. Multiple vendors hide
// behind one Provider interface; configuration selects which one is active.
package sms

import (
	"context"
)

// ProviderResult is a vendor response translated into neutral terms.
type ProviderResult struct {
	MessageID string
	Cost      float64
}

// Provider is one SMS vendor integration. Implementations validate nothing;
// the adapter normalizes destinations before calling a provider.
type Provider interface {
	// Name identifies the vendor in ledger entries.
	Name() string

	// Send delivers the body to an E.164 destination.
	Send(ctx context.Context, to, body string) (ProviderResult, error)
}
