package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirewire/notifykit/pkg/dispatch"
	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/prefs"
	"github.com/hirewire/notifykit/pkg/rules"
)

// Engine is the single entry point producers use: it normalizes a raw
// event, evaluates the rule set and hands the result to the dispatcher.
type Engine struct {
	normalizer *event.Normalizer
	rules      *rules.Service
	prefs      *prefs.Service
	dispatcher *dispatch.Dispatcher
	ledger     ledger.Storage
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNormalizer overrides the event normalizer, mainly for tests that need
// a fixed clock.
func WithNormalizer(n *event.Normalizer) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// NewEngine assembles the notification engine from its collaborators.
func NewEngine(
	ruleService *rules.Service,
	prefService *prefs.Service,
	dispatcher *dispatch.Dispatcher,
	ledgerStorage ledger.Storage,
	opts ...EngineOption,
) (*Engine, error) {
	if ruleService == nil {
		return nil, ErrRulesNil
	}
	if prefService == nil {
		return nil, ErrPrefsNil
	}
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}
	if ledgerStorage == nil {
		return nil, ErrLedgerNil
	}

	e := &Engine{
		normalizer: event.NewNormalizer(),
		rules:      ruleService,
		prefs:      prefService,
		dispatcher: dispatcher,
		ledger:     ledgerStorage,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Receipt is the full record of one event's trip through the pipeline,
// returned to producers and audit surfaces.
type Receipt struct {
	Event      event.NotificationEvent `json:"event"`
	Evaluation rules.EvaluationResult  `json:"evaluation"`
	Outcome    dispatch.Outcome        `json:"outcome"`
}

// Notify runs the full pipeline for one raw event: normalize, evaluate,
// dispatch. Suppressions and queued digests are successful outcomes, not
// errors.
func (e *Engine) Notify(ctx context.Context, raw event.RawEvent) (Receipt, error) {
	evt, err := e.normalizer.Normalize(raw)
	if err != nil {
		return Receipt{}, err
	}

	eval, err := e.rules.Evaluate(ctx, evt)
	if err != nil {
		return Receipt{}, fmt.Errorf("rule evaluation failed: %w", err)
	}

	outcome, err := e.dispatcher.Dispatch(ctx, evt, eval.FinalPriority)
	if err != nil {
		return Receipt{}, fmt.Errorf("dispatch failed: %w", err)
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "Processed notification event",
		logger.NotificationID(evt.ID),
		logger.EventType(string(evt.Type)),
		logger.UserID(evt.SubjectIDs.UserID),
		logger.Decision(string(outcome.Decision)),
		slog.String("priority", eval.FinalPriority.String()),
	)

	return Receipt{Event: evt, Evaluation: eval, Outcome: outcome}, nil
}

// EvaluateSample runs an event through the rule set without dispatching
// anything. The authoring sandbox renders the returned steps, conflicts and
// warnings.
func (e *Engine) EvaluateSample(ctx context.Context, raw event.RawEvent) (event.NotificationEvent, rules.EvaluationResult, error) {
	evt, err := e.normalizer.Normalize(raw)
	if err != nil {
		return event.NotificationEvent{}, rules.EvaluationResult{}, err
	}

	eval, err := e.rules.Evaluate(ctx, evt)
	if err != nil {
		return event.NotificationEvent{}, rules.EvaluationResult{}, err
	}
	return evt, eval, nil
}

// UpdateDeliveryStatus applies a provider status webhook to the ledger.
func (e *Engine) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status ledger.Status, reason string) (*ledger.Attempt, error) {
	if providerMessageID == "" {
		return nil, fmt.Errorf("%w: provider message id is required", ErrInvalidWebhook)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidWebhook, status)
	}

	attempt, err := e.ledger.UpdateByProviderMessageID(ctx, providerMessageID, status, reason)
	if err != nil {
		return nil, err
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "Applied delivery status update",
		logger.MessageID(providerMessageID),
		logger.NotificationID(attempt.NotificationID),
		slog.String("status", string(status)),
	)
	return attempt, nil
}

// Cancel removes a queued or held notification before delivery.
func (e *Engine) Cancel(ctx context.Context, userID, notificationID string) error {
	return e.dispatcher.Cancel(ctx, userID, notificationID)
}

// Rules returns the rule service for administration surfaces.
func (e *Engine) Rules() *rules.Service { return e.rules }

// Preferences returns the preference service for administration surfaces.
func (e *Engine) Preferences() *prefs.Service { return e.prefs }

// Dispatcher returns the dispatcher, mainly so callers can build a
// Scheduler around it.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }

// Ledger returns the delivery ledger storage for audit surfaces.
func (e *Engine) Ledger() ledger.Storage { return e.ledger }
