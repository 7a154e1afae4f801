package sms

import (
	"context"

	"github.com/hirewire/notifykit/pkg/channel"
)

// Adapter delivers notifications over SMS through the configured vendor.
type Adapter struct {
	provider Provider
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithProvider overrides the configured vendor, mainly for tests.
func WithProvider(p Provider) AdapterOption {
	return func(a *Adapter) {
		if p != nil {
			a.provider = p
		}
	}
}

// NewAdapter creates an SMS adapter with the vendor selected by
// cfg.ActiveProvider. An unknown provider name leaves the adapter
// unconfigured; sends then fail with a configuration reason instead of
// panicking at startup.
func NewAdapter(cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{}
	switch cfg.ActiveProvider {
	case "twilio":
		a.provider = newTwilioProvider(cfg)
	case "vonage":
		a.provider = newVonageProvider(cfg)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Channel() channel.Channel {
	return channel.ChannelSMS
}

func (a *Adapter) Provider() string {
	if a.provider == nil {
		return "unconfigured"
	}
	return a.provider.Name()
}

// ValidateDestination checks the destination normalizes to E.164.
func (a *Adapter) ValidateDestination(destination string) error {
	_, err := NormalizePhone(destination)
	return err
}

// Send normalizes the destination and delegates to the active vendor.
// Segment count is computed locally; cost comes from the vendor when it
// reports one.
func (a *Adapter) Send(ctx context.Context, destination string, msg channel.Message) channel.SendResult {
	to, err := NormalizePhone(destination)
	if err != nil {
		return channel.Failed(err.Error())
	}
	if a.provider == nil {
		return channel.Failed("no active SMS provider configured")
	}

	res, err := a.provider.Send(ctx, to, msg.Body)
	if err != nil {
		return channel.Failedf("sms send failed: %v", err)
	}

	out := channel.Sent(res.MessageID)
	out.Cost = res.Cost
	out.Segments = Segments(msg.Body)
	return out
}
