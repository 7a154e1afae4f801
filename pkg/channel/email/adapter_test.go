package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/channel/email"
)

func TestAdapter_ValidateDestination(t *testing.T) {
	t.Parallel()

	adapter := email.NewAdapter(email.Config{})

	tests := []struct {
		name        string
		destination string
		wantErr     bool
	}{
		{name: "plain address", destination: "recruiter@example.com"},
		{name: "plus tag", destination: "recruiter+jobs@example.co.uk"},
		{name: "missing at sign", destination: "recruiter.example.com", wantErr: true},
		{name: "missing domain", destination: "recruiter@", wantErr: true},
		{name: "empty", destination: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := adapter.ValidateDestination(tt.destination)
			if tt.wantErr {
				assert.ErrorIs(t, err, channel.ErrInvalidDestination)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAdapter_SendUnconfigured(t *testing.T) {
	t.Parallel()

	adapter := email.NewAdapter(email.Config{})
	require.Equal(t, "postmark", adapter.Provider())

	result := adapter.Send(context.Background(), "recruiter@example.com", channel.Message{
		NotificationID: "n-1",
		Subject:        "New candidate match",
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "not configured")
}

func TestDevAdapter_SendWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	adapter := email.NewDevAdapter(dir)
	require.Equal(t, channel.ChannelEmail, adapter.Channel())

	result := adapter.Send(context.Background(), "recruiter@example.com", channel.Message{
		NotificationID: "n-1",
		UserID:         "user-1",
		Subject:        "New candidate match",
		Body:           "Jane Doe scored 92",
		Digest:         true,
	})
	require.True(t, result.Success)
	assert.NotEmpty(t, result.ProviderMessageID)

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var saved struct {
		SendTo         string `json:"send_to"`
		Subject        string `json:"subject"`
		NotificationID string `json:"notification_id"`
		Digest         bool   `json:"digest"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "recruiter@example.com", saved.SendTo)
	assert.Equal(t, "New candidate match", saved.Subject)
	assert.Equal(t, "n-1", saved.NotificationID)
	assert.True(t, saved.Digest)
}

func TestDevAdapter_SendRejectsInvalidDestination(t *testing.T) {
	t.Parallel()

	adapter := email.NewDevAdapter(t.TempDir())

	result := adapter.Send(context.Background(), "not-an-address", channel.Message{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "not a valid email address")
}
