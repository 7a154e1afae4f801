// Package push implements the push delivery adapter as a signed webhook
// POST to a push gateway. The gateway owns the vendor protocol (APNs, FCM);
// this adapter owns destination validation and result normalization.
package push

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/notifykit/pkg/channel"
)

const minTokenLength = 16

// Adapter delivers notifications to device tokens through a push gateway.
type Adapter struct {
	config Config
	client *http.Client
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// NewAdapter creates the push adapter.
func NewAdapter(cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Channel() channel.Channel {
	return channel.ChannelPush
}

func (a *Adapter) Provider() string {
	return "push-gateway"
}

// ValidateDestination checks the destination looks like a device token.
func (a *Adapter) ValidateDestination(destination string) error {
	if len(destination) < minTokenLength || strings.ContainsAny(destination, " \t\n") {
		return fmt.Errorf("%w: %q is not a valid device token", channel.ErrInvalidDestination, destination)
	}
	return nil
}

type gatewayPayload struct {
	Token          string `json:"token"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Priority       string `json:"priority"`
	NotificationID string `json:"notification_id"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Send posts the signed payload to the gateway. The signature binds the
// body to a timestamp so the gateway can reject replays.
func (a *Adapter) Send(ctx context.Context, destination string, msg channel.Message) channel.SendResult {
	if err := a.ValidateDestination(destination); err != nil {
		return channel.Failed(err.Error())
	}
	if a.config.GatewayURL == "" || a.config.SigningSecret == "" {
		return channel.Failed("push gateway is not configured")
	}

	payload, err := json.Marshal(gatewayPayload{
		Token:          destination,
		Title:          msg.Subject,
		Body:           msg.Body,
		Priority:       msg.Priority.String(),
		NotificationID: msg.NotificationID,
	})
	if err != nil {
		return channel.Failedf("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return channel.Failedf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	timestamp := time.Now().Unix()
	req.Header.Set("X-Notify-Signature", sign(a.config.SigningSecret, timestamp, payload))
	req.Header.Set("X-Notify-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Notify-ID", uuid.New().String())

	resp, err := a.client.Do(req)
	if err != nil {
		return channel.Failedf("push gateway request failed: %v", err)
	}
	defer resp.Body.Close()

	var parsed gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode < 300 {
		return channel.Failedf("failed to decode gateway response: %v", err)
	}

	if resp.StatusCode >= 300 {
		reason := parsed.Error
		if reason == "" {
			reason = resp.Status
		}
		return channel.Failedf("push gateway rejected message: %s", reason)
	}

	id := parsed.MessageID
	if id == "" {
		id = uuid.New().String()
	}
	return channel.Sent(id)
}

// sign creates an HMAC-SHA256 signature over "timestamp.payload", the same
// scheme the provider status webhooks use on the intake side.
func sign(secret string, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", timestamp, payload)
	return hex.EncodeToString(h.Sum(nil))
}
