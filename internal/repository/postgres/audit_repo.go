package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xela07ax/spaceai-safety-engine/internal/audit"
)

// AuditRepo: внешнее хранилище журнала аудита (реализует audit.Storage).
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Количество колонок в таблице safety_audit_log
const auditFields = 8

func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(entries)*auditFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		if i > 0 {
			placeholders.WriteString(", ")
		}
		p := i * auditFields
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)

		ctxJSON, err := json.Marshal(e.Context)
		if err != nil {
			return fmt.Errorf("postgres: marshal audit context %s: %w", e.ID, err)
		}
		verdictJSON, err := json.Marshal(e.Verdict)
		if err != nil {
			return fmt.Errorf("postgres: marshal audit verdict %s: %w", e.ID, err)
		}

		vals = append(vals,
			e.ID, e.Timestamp, e.ActionType, ctxJSON, verdictJSON,
			e.Verdict.Approved, string(e.Verdict.SafetyLevel), e.EmergencyStopActive,
		)
	}

	query := "INSERT INTO safety_audit_log " +
		"(id, timestamp, action_type, context, verdict, approved, safety_level, emergency_stop_active) VALUES " +
		placeholders.String()

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write audit batch: %w", err)
	}
	return nil
}
