package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-safety-engine/internal/audit"
	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

func TestAuditRepo_WriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAuditRepo(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []audit.Entry{
		{
			ID: "e-1", Timestamp: now, ActionType: "doxxing",
			Context: map[string]any{"target": "x"},
			Verdict: domain.SafetyCheck{Approved: false, SafetyLevel: domain.LevelProhibited},
		},
		{
			ID: "e-2", Timestamp: now, ActionType: "emergency_stop",
			Verdict:             domain.SafetyCheck{Approved: false, SafetyLevel: domain.LevelProhibited},
			EmergencyStopActive: true,
		},
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO safety_audit_log (id, timestamp, action_type, context, verdict, approved, safety_level, emergency_stop_active) VALUES "+
			"($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)")).
		WithArgs(
			"e-1", sqlmock.AnyArg(), "doxxing", []byte(`{"target":"x"}`), sqlmock.AnyArg(), false, "PROHIBITED", false,
			"e-2", sqlmock.AnyArg(), "emergency_stop", []byte(`null`), sqlmock.AnyArg(), false, "PROHIBITED", true,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.WriteBatch(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_WriteBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewAuditRepo(db).WriteBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_WriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO safety_audit_log").WillReturnError(boom)

	err = NewAuditRepo(db).WriteBatch(context.Background(), []audit.Entry{{ID: "e-1"}})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
