package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirewire/notifykit/pkg/event"
)

// PGStorage is a Postgres implementation of the Storage interface backed by
// a pgx connection pool. Schema lives in migrations/ and is applied with
// the pg.Migrate helper.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed rule storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

const ruleColumns = `id, name, scope_type, scope_id, rule_order, conditions,
	priority_override, allow_deescalation, boost, active, created_at, updated_at`

func (s *PGStorage) Upsert(ctx context.Context, rule Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule conditions: %w", err)
	}

	var override *string
	if rule.PriorityOverride != nil {
		v := rule.PriorityOverride.String()
		override = &v
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rules (id, name, scope_type, scope_id, rule_order, conditions,
			priority_override, allow_deescalation, boost, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			scope_type = EXCLUDED.scope_type,
			scope_id = EXCLUDED.scope_id,
			rule_order = EXCLUDED.rule_order,
			conditions = EXCLUDED.conditions,
			priority_override = EXCLUDED.priority_override,
			allow_deescalation = EXCLUDED.allow_deescalation,
			boost = EXCLUDED.boost,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		rule.ID, rule.Name, rule.Scope.Type, nullable(rule.Scope.JobID), rule.Order, conditions,
		override, rule.AllowDeescalation, rule.Boost, rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	return err
}

func (s *PGStorage) Get(ctx context.Context, id string) (*Rule, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (s *PGStorage) List(ctx context.Context, scope Scope) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE scope_type = $1 AND scope_id IS NOT DISTINCT FROM $2
		ORDER BY rule_order, name`,
		scope.Type, nullable(scope.JobID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func (s *PGStorage) ListForEvaluation(ctx context.Context, jobID string) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE scope_type = 'global' OR ($1 <> '' AND scope_id = $1)
		ORDER BY rule_order, name`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var (
		rule       Rule
		scopeID    *string
		conditions []byte
		override   *string
	)
	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.Scope.Type, &scopeID, &rule.Order, &conditions,
		&override, &rule.AllowDeescalation, &rule.Boost, &rule.Active,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if scopeID != nil {
		rule.Scope.JobID = *scopeID
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule conditions: %w", err)
		}
	}
	if override != nil {
		p, err := event.ParsePriority(*override)
		if err != nil {
			return nil, err
		}
		rule.PriorityOverride = &p
	}
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
