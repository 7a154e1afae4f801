package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/prefs"
	"github.com/hirewire/notifykit/pkg/rules"
)

const webhookTolerance = 5 * time.Minute

// RouterOptions configures the HTTP surface.
type RouterOptions struct {
	// WebhookSecret enables HMAC verification of provider status webhooks.
	// When empty, webhooks are accepted unsigned (local development only).
	WebhookSecret string

	Logger *slog.Logger
}

// Router mounts the engine's HTTP surface: event intake, the rule-authoring
// sandbox, rule and preference administration, the delivery audit trail and
// provider status webhooks.
func Router(engine *Engine, opts RouterOptions) chi.Router {
	s := &server{
		engine: engine,
		secret: opts.WebhookSecret,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Post("/notify", s.handleNotify)

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Put("/", s.handleUpsertRule)
		r.Post("/evaluate", s.handleEvaluate)
	})

	r.Route("/preferences", func(r chi.Router) {
		r.Get("/", s.handleGetPreferences)
		r.Put("/", s.handleUpsertPreferences)
		r.Delete("/", s.handleResetPreferences)
	})

	r.Get("/notifications/{id}/attempts", s.handleListAttempts)
	r.Get("/users/{userID}/usage", s.handleUsage)
	r.Delete("/notifications/{id}", s.handleCancel)

	r.Post("/webhooks/delivery-status", s.handleDeliveryStatus)

	return r
}

type server struct {
	engine *Engine
	secret string
	logger *slog.Logger
}

func (s *server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var raw event.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := s.engine.Notify(r.Context(), raw)
	if err != nil {
		if errors.Is(err, event.ErrInvalidEvent) || errors.Is(err, event.ErrUnknownEventType) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Notify failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	respondJSON(w, http.StatusAccepted, receipt)
}

func (s *server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var raw event.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, eval, err := s.engine.EvaluateSample(r.Context(), raw)
	if err != nil {
		if errors.Is(err, event.ErrInvalidEvent) || errors.Is(err, event.ErrUnknownEventType) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Sample evaluation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to evaluate event")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"event":      evt,
		"evaluation": eval,
	})
}

func (s *server) handleListRules(w http.ResponseWriter, r *http.Request) {
	scope := rules.GlobalScope()
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		scope = rules.JobScope(jobID)
	}

	rs, err := s.engine.Rules().List(r.Context(), scope)
	if err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Rule list failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	respondJSON(w, http.StatusOK, rs)
}

func (s *server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := s.engine.Rules().Upsert(r.Context(), rule)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidRule) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Rule upsert failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store rule")
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func prefScopeFromQuery(r *http.Request) prefs.Scope {
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		return prefs.JobScope(jobID)
	}
	return prefs.GlobalScope()
}

func (s *server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	eff := s.engine.Preferences().Get(r.Context(), userID, prefScopeFromQuery(r))
	respondJSON(w, http.StatusOK, eff)
}

func (s *server) handleUpsertPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var patch prefs.Preference
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eff, err := s.engine.Preferences().Upsert(r.Context(), userID, prefScopeFromQuery(r), patch)
	if err != nil {
		if errors.Is(err, prefs.ErrInvalidPreference) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Preference upsert failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store preference")
		return
	}
	respondJSON(w, http.StatusOK, eff)
}

func (s *server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.engine.Preferences().Reset(r.Context(), userID, prefScopeFromQuery(r)); err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Preference reset failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to reset preference")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "id")

	attempts, err := s.engine.Ledger().ListByNotification(r.Context(), notificationID)
	if err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Attempt list failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}
	respondJSON(w, http.StatusOK, attempts)
}

func (s *server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := s.engine.Ledger().UsageStats(r.Context(), userID)
	if err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Usage stats failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load usage stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.engine.Cancel(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "Cancel failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to cancel notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deliveryStatusPayload struct {
	ProviderMessageID string `json:"provider_message_id"`
	Status            string `json:"status"`
	Reason            string `json:"reason,omitempty"`
}

func (s *server) handleDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if s.secret != "" {
		if err := verifySignature(s.secret, r.Header, body); err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var payload deliveryStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := s.engine.UpdateDeliveryStatus(r.Context(), payload.ProviderMessageID, ledger.Status(payload.Status), payload.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidWebhook):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrAttemptNotFound):
			// Unknown message IDs are acknowledged so providers stop
			// retrying webhooks for attempts we never recorded.
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ledger.ErrAttemptFinal):
			w.WriteHeader(http.StatusOK)
		default:
			s.logger.LogAttrs(r.Context(), slog.LevelError, "Delivery status update failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to apply status update")
		}
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}

// verifySignature checks the HMAC-SHA256 signature over "timestamp.body"
// and rejects stale timestamps to limit replay.
func verifySignature(secret string, header http.Header, body []byte) error {
	signature := header.Get("X-Notify-Signature")
	timestampRaw := header.Get("X-Notify-Timestamp")
	if signature == "" || timestampRaw == "" {
		return fmt.Errorf("%w: missing signature headers", ErrInvalidWebhook)
	}

	timestamp, err := strconv.ParseInt(timestampRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrInvalidWebhook)
	}
	if d := time.Since(time.Unix(timestamp, 0)); d > webhookTolerance || d < -webhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidWebhook)
	}

	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", timestamp, body)
	expected := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidWebhook)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
