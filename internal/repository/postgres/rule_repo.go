package postgres

/*
Файл rule_repo.go отвечает за долговременное хранение дополнительных правил.
Движок загружает их один раз при старте (Registry.Load), дальше работает только память.
Условие правила хранится как JSONB в формате domain.Condition.
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"github.com/xela07ax/spaceai-safety-engine/internal/policy"
)

type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

// GetAllRules выполняет "холодную загрузку" каталога в порядке position.
func (r *RuleRepo) GetAllRules(ctx context.Context) ([]domain.Rule, error) {
	query := `
		SELECT id, law, name, description, condition, action, priority, enabled, metadata
		FROM safety_rules
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query rules: %w", err)
	}
	defer rows.Close()

	var results []domain.Rule
	for rows.Next() {
		var (
			rule      domain.Rule
			law       int
			action    string
			condition []byte
			metadata  []byte
		)
		if err := rows.Scan(&rule.ID, &law, &rule.Name, &rule.Description,
			&condition, &action, &rule.Priority, &rule.Enabled, &metadata); err != nil {
			return nil, fmt.Errorf("postgres: scan rule: %w", err)
		}

		rule.Law = domain.Law(law)
		rule.Action = domain.RuleAction(action)
		if err := json.Unmarshal(condition, &rule.Condition); err != nil {
			return nil, fmt.Errorf("postgres: rule %s: decode condition: %w", rule.ID, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rule.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: rule %s: decode metadata: %w", rule.ID, err)
			}
		}
		results = append(results, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate rules: %w", err)
	}
	return results, nil
}

// SetRuleEnabled сохраняет переключение правила оператором.
func (r *RuleRepo) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE safety_rules SET enabled = $1, updated_at = now() WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to update rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("postgres: %w: %s", policy.ErrRuleNotFound, id)
	}
	return nil
}
