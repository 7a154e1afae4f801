package notify_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/dispatch"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/notify"
	"github.com/hirewire/notifykit/pkg/prefs"
	"github.com/hirewire/notifykit/pkg/rules"
)

const webhookSecret = "test-webhook-secret"

type okAdapter struct {
	ch channel.Channel
}

func (a okAdapter) Channel() channel.Channel         { return a.ch }
func (a okAdapter) Provider() string                 { return "test" }
func (a okAdapter) ValidateDestination(string) error { return nil }
func (a okAdapter) Send(_ context.Context, _ string, msg channel.Message) channel.SendResult {
	return channel.Sent("pm-" + msg.NotificationID)
}

type testEnv struct {
	server *httptest.Server
	ledger *ledger.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ledgerStorage := ledger.NewMemoryStorage()

	ruleService, err := rules.NewService(rules.NewMemoryStorage())
	require.NoError(t, err)
	prefService, err := prefs.NewService(prefs.NewMemoryStorage())
	require.NoError(t, err)

	dispatcher, err := dispatch.NewDispatcher(
		channel.NewRegistry(okAdapter{ch: channel.ChannelEmail}),
		ledgerStorage,
		prefService.Resolver(),
		dispatch.StaticDirectory{
			"user-1": {channel.ChannelEmail: "recruiter@example.com"},
		},
	)
	require.NoError(t, err)

	engine, err := notify.NewEngine(ruleService, prefService, dispatcher, ledgerStorage)
	require.NoError(t, err)

	server := httptest.NewServer(notify.Router(engine, notify.RouterOptions{
		WebhookSecret: webhookSecret,
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, ledger: ledgerStorage}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRouter_NotifyDelivers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/notify", map[string]any{
		"type":        "match_created",
		"subject_ids": map[string]string{"user_id": "user-1", "candidate_id": "cand-1"},
		"attributes":  map[string]any{"score": 85},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var receipt notify.Receipt
	decodeBody(t, resp, &receipt)

	assert.Equal(t, dispatch.DecisionDelivered, receipt.Outcome.Decision)
	assert.NotEmpty(t, receipt.Event.ID)
	require.Len(t, receipt.Outcome.Attempts, 1)
	assert.Equal(t, ledger.StatusSent, receipt.Outcome.Attempts[0].Status)
}

func TestRouter_NotifyRejectsUnknownType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/notify", map[string]any{"type": "meeting_scheduled"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_RuleAdministration(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/rules", map[string]any{
		"name":  "engineering boost",
		"scope": map[string]string{"type": "global"},
		"conditions": []map[string]any{
			{"field": "department", "operator": "equals", "value": "Engineering"},
		},
		"boost":  25,
		"active": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored rules.Rule
	decodeBody(t, resp, &stored)
	assert.NotEmpty(t, stored.ID)

	listResp := env.do(t, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listed []rules.Rule
	decodeBody(t, listResp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "engineering boost", listed[0].Name)
}

func TestRouter_RuleUpsertValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/rules", map[string]any{"boost": 10})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRouter_EvaluateSandbox(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	put := env.do(t, http.MethodPut, "/rules", map[string]any{
		"name":              "compliance escalation",
		"scope":             map[string]string{"type": "global"},
		"priority_override": "critical",
		"active":            true,
	})
	put.Body.Close()
	require.Equal(t, http.StatusOK, put.StatusCode)

	resp := env.do(t, http.MethodPost, "/rules/evaluate", map[string]any{
		"type":        "match_created",
		"subject_ids": map[string]string{"user_id": "user-1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Evaluation rules.EvaluationResult `json:"evaluation"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, "critical", body.Evaluation.FinalPriority.String())
	require.Len(t, body.Evaluation.Steps, 1)
	assert.True(t, body.Evaluation.Steps[0].Matched)
}

func TestRouter_PreferenceLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	putResp := env.do(t, http.MethodPut, "/preferences?user_id=user-1", map[string]any{
		"channel_sms": false,
		"digest_mode": true,
	})
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	var eff prefs.Effective
	decodeBody(t, putResp, &eff)
	assert.False(t, eff.ChannelSMS)
	assert.True(t, eff.DigestMode)

	getResp := env.do(t, http.MethodGet, "/preferences?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	decodeBody(t, getResp, &eff)
	assert.False(t, eff.ChannelSMS)

	delResp := env.do(t, http.MethodDelete, "/preferences?user_id=user-1", nil)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	getResp = env.do(t, http.MethodGet, "/preferences?user_id=user-1", nil)
	decodeBody(t, getResp, &eff)
	assert.True(t, eff.ChannelSMS, "reset restores defaults")
}

func TestRouter_PreferenceRequiresUserID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/preferences", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AttemptsAudit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	notifyResp := env.do(t, http.MethodPost, "/notify", map[string]any{
		"id":          "n-audit",
		"type":        "match_created",
		"subject_ids": map[string]string{"user_id": "user-1"},
	})
	notifyResp.Body.Close()
	require.Equal(t, http.StatusAccepted, notifyResp.StatusCode)

	resp := env.do(t, http.MethodGet, "/notifications/n-audit/attempts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var attempts []ledger.Attempt
	decodeBody(t, resp, &attempts)
	require.Len(t, attempts, 1)
	assert.Equal(t, "email", attempts[0].Channel)
}

func signWebhook(t *testing.T, body []byte) (signature, timestamp string) {
	t.Helper()

	ts := time.Now().Unix()
	h := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(h, "%d.%s", ts, body)
	return hex.EncodeToString(h.Sum(nil)), strconv.FormatInt(ts, 10)
}

func TestRouter_DeliveryStatusWebhook(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	notifyResp := env.do(t, http.MethodPost, "/notify", map[string]any{
		"id":          "n-hook",
		"type":        "match_created",
		"subject_ids": map[string]string{"user_id": "user-1"},
	})
	notifyResp.Body.Close()
	require.Equal(t, http.StatusAccepted, notifyResp.StatusCode)

	body, err := json.Marshal(map[string]string{
		"provider_message_id": "pm-n-hook",
		"status":              "delivered",
	})
	require.NoError(t, err)

	signature, timestamp := signWebhook(t, body)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/webhooks/delivery-status", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Notify-Signature", signature)
	req.Header.Set("X-Notify-Timestamp", timestamp)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	attempts, err := env.ledger.ListByNotification(context.Background(), "n-hook")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, ledger.StatusDelivered, attempts[0].Status)
	assert.NotNil(t, attempts[0].DeliveredAt)
}

func TestRouter_DeliveryStatusWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	body := []byte(`{"provider_message_id":"pm-x","status":"delivered"}`)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/webhooks/delivery-status", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Notify-Signature", "deadbeef")
	req.Header.Set("X-Notify-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_DeliveryStatusWebhookAcksUnknownMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	body, err := json.Marshal(map[string]string{
		"provider_message_id": "pm-ghost",
		"status":              "delivered",
	})
	require.NoError(t, err)

	signature, timestamp := signWebhook(t, body)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/webhooks/delivery-status", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Notify-Signature", signature)
	req.Header.Set("X-Notify-Timestamp", timestamp)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "unknown IDs are acknowledged to stop provider retries")
}
