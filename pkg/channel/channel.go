package channel

import (
	"context"
	"fmt"

	"github.com/hirewire/notifykit/pkg/event"
)

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Message is the normalized payload handed to an adapter. Body rendering
// happens upstream; adapters only transport.
type Message struct {
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body"`
	Priority       event.Priority `json:"priority"`
	Digest         bool           `json:"digest"`
}

// SendResult is the normalized outcome of one provider call.
type SendResult struct {
	Success           bool    `json:"success"`
	Status            string  `json:"status"` // sent or failed
	ProviderMessageID string  `json:"provider_message_id,omitempty"`
	Cost              float64 `json:"cost,omitempty"`
	Segments          int     `json:"segments,omitempty"`
	Err               string  `json:"error,omitempty"`
}

// Sent builds a successful result.
func Sent(providerMessageID string) SendResult {
	return SendResult{Success: true, Status: "sent", ProviderMessageID: providerMessageID}
}

// Failed builds a failed result carrying the reason. It is the only way
// adapter failures surface; adapters never return Go errors from Send.
func Failed(reason string) SendResult {
	return SendResult{Success: false, Status: "failed", Err: reason}
}

// Failedf builds a failed result with a formatted reason.
func Failedf(format string, args ...any) SendResult {
	return Failed(fmt.Sprintf(format, args...))
}

// Adapter is the uniform delivery boundary implemented per channel.
type Adapter interface {
	// Channel returns the channel this adapter serves.
	Channel() Channel

	// Provider returns the name of the active underlying provider.
	Provider() string

	// ValidateDestination checks the destination format without sending.
	ValidateDestination(destination string) error

	// Send delivers the message. Failures are reported through the result,
	// never as an error, so one failed delivery cannot abort its siblings.
	Send(ctx context.Context, destination string, msg Message) SendResult
}

// Registry maps channels to their configured adapters. It is built once at
// startup from immutable configuration and safe for concurrent use.
type Registry struct {
	adapters map[Channel]Adapter
}

// NewRegistry builds a registry from the given adapters. Later adapters for
// the same channel replace earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[Channel]Adapter, len(adapters))
	for _, a := range adapters {
		if a != nil {
			m[a.Channel()] = a
		}
	}
	return &Registry{adapters: m}
}

// Adapter returns the adapter for a channel.
func (r *Registry) Adapter(ch Channel) (Adapter, error) {
	a, ok := r.adapters[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return a, nil
}

// Channels returns the channels with a registered adapter.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		out = append(out, ch)
	}
	return out
}
