// Package email implements the email delivery adapter on top of the
// Postmark transactional API, with a file-based sender for development.
package email

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/mrz1836/postmark"

	"github.com/hirewire/notifykit/pkg/channel"
)

// ProviderPostmark is the provider name recorded in the ledger.
const ProviderPostmark = "postmark"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Adapter delivers notifications through Postmark.
type Adapter struct {
	client *postmark.Client
	config Config
}

// NewAdapter creates the Postmark-backed email adapter. Construction never
// fails on missing credentials; an unconfigured adapter reports every send
// as failed so the ledger still records the attempt.
func NewAdapter(cfg Config) *Adapter {
	a := &Adapter{config: cfg}
	if cfg.configured() {
		a.client = postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	}
	return a
}

func (a *Adapter) Channel() channel.Channel {
	return channel.ChannelEmail
}

func (a *Adapter) Provider() string {
	return ProviderPostmark
}

// ValidateDestination checks the destination is a plausible email address.
func (a *Adapter) ValidateDestination(destination string) error {
	if !emailRegex.MatchString(destination) {
		return fmt.Errorf("%w: %q is not a valid email address", channel.ErrInvalidDestination, destination)
	}
	return nil
}

// Send delivers one message. Tracking is limited to opens to avoid privacy
// issues with link rewriting in recruitment mail.
func (a *Adapter) Send(ctx context.Context, destination string, msg channel.Message) channel.SendResult {
	if err := a.ValidateDestination(destination); err != nil {
		return channel.Failed(err.Error())
	}
	if a.client == nil {
		return channel.Failed("email provider is not configured")
	}

	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:       a.config.SenderEmail,
		ReplyTo:    a.config.SupportEmail,
		To:         destination,
		Subject:    msg.Subject,
		TextBody:   msg.Body,
		Tag:        "notification",
		TrackOpens: true,
	})
	if err != nil {
		return channel.Failedf("postmark send failed: %v", err)
	}
	if resp.ErrorCode > 0 {
		return channel.Failedf("postmark error %s: %s", strconv.FormatInt(resp.ErrorCode, 10), resp.Message)
	}

	return channel.Sent(resp.MessageID)
}
