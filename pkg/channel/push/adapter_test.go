package push_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/channel/push"
)

const testToken = "device-token-0123456789abcdef"

func TestAdapter_ValidateDestination(t *testing.T) {
	t.Parallel()

	adapter := push.NewAdapter(push.Config{})

	assert.NoError(t, adapter.ValidateDestination(testToken))
	assert.ErrorIs(t, adapter.ValidateDestination("short"), channel.ErrInvalidDestination)
	assert.ErrorIs(t, adapter.ValidateDestination("token with spaces in it"), channel.ErrInvalidDestination)
}

func TestAdapter_SendSignsPayload(t *testing.T) {
	t.Parallel()

	const secret = "test-signing-secret"

	var (
		gotSignature string
		gotTimestamp string
		gotBody      []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Notify-Signature")
		gotTimestamp = r.Header.Get("X-Notify-Timestamp")
		gotBody, _ = io.ReadAll(r.Body)

		json.NewEncoder(w).Encode(map[string]string{"message_id": "push-1"})
	}))
	defer server.Close()

	adapter := push.NewAdapter(push.Config{
		GatewayURL:    server.URL,
		SigningSecret: secret,
	})

	result := adapter.Send(context.Background(), testToken, channel.Message{
		NotificationID: "n1",
		Subject:        "New candidate match",
		Body:           "Alice matched your job.",
	})

	require.True(t, result.Success, result.Err)
	assert.Equal(t, "push-1", result.ProviderMessageID)

	// Recompute the signature the way the gateway would verify it.
	ts, err := strconv.ParseInt(gotTimestamp, 10, 64)
	require.NoError(t, err)

	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", ts, gotBody)
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), gotSignature)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, testToken, payload["token"])
	assert.Equal(t, "n1", payload["notification_id"])
}

func TestAdapter_SendGatewayRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "token revoked"})
	}))
	defer server.Close()

	adapter := push.NewAdapter(push.Config{
		GatewayURL:    server.URL,
		SigningSecret: "secret",
	})

	result := adapter.Send(context.Background(), testToken, channel.Message{NotificationID: "n1"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "token revoked")
}

func TestAdapter_SendUnconfigured(t *testing.T) {
	t.Parallel()

	adapter := push.NewAdapter(push.Config{})

	result := adapter.Send(context.Background(), testToken, channel.Message{NotificationID: "n1"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "not configured")
}
