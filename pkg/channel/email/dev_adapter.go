package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/notifykit/pkg/channel"
)

// DevAdapter implements the email channel for local development. It writes
// messages to disk instead of calling a provider, so the rest of the
// pipeline (ledger, dispatch decisions, digests) can be exercised offline.
type DevAdapter struct {
	dir string
}

// NewDevAdapter creates a development email adapter that saves messages to
// the given directory.
func NewDevAdapter(dir string) *DevAdapter {
	return &DevAdapter{dir: dir}
}

func (a *DevAdapter) Channel() channel.Channel {
	return channel.ChannelEmail
}

func (a *DevAdapter) Provider() string {
	return "dev-file"
}

func (a *DevAdapter) ValidateDestination(destination string) error {
	if !emailRegex.MatchString(destination) {
		return fmt.Errorf("%w: %q is not a valid email address", channel.ErrInvalidDestination, destination)
	}
	return nil
}

type devMessage struct {
	Timestamp      string `json:"timestamp"`
	SendTo         string `json:"send_to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	NotificationID string `json:"notification_id"`
	Digest         bool   `json:"digest"`
}

// Send writes the message as a JSON file named by timestamp.
func (a *DevAdapter) Send(ctx context.Context, destination string, msg channel.Message) channel.SendResult {
	if err := a.ValidateDestination(destination); err != nil {
		return channel.Failed(err.Error())
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return channel.Failedf("failed to create output directory: %v", err)
	}

	now := time.Now()
	data, err := json.MarshalIndent(devMessage{
		Timestamp:      now.Format(time.RFC3339),
		SendTo:         destination,
		Subject:        msg.Subject,
		Body:           msg.Body,
		NotificationID: msg.NotificationID,
		Digest:         msg.Digest,
	}, "", "  ")
	if err != nil {
		return channel.Failedf("failed to marshal message: %v", err)
	}

	id := uuid.New().String()
	path := filepath.Join(a.dir, fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405"), id[:8]))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return channel.Failedf("failed to write message file: %v", err)
	}

	return channel.Sent(id)
}
