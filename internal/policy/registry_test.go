package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

func testRule(id string) domain.Rule {
	return domain.Rule{
		ID:        id,
		Law:       domain.LawThird,
		Name:      id,
		Condition: Eq("action_type", id),
		Action:    domain.ActionBlock,
		Enabled:   true,
	}
}

type stubRepo struct {
	rules []domain.Rule
	err   error
}

func (s stubRepo) GetAllRules(context.Context) ([]domain.Rule, error) {
	return s.rules, s.err
}

func TestRegistry_CoreRulesCompile(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterAll(CoreRules()))

	assert.Equal(t, 13, r.Len())
	assert.Equal(t, 13, r.EnabledLen())

	ids := make([]string, 0, r.Len())
	for _, cr := range r.All() {
		ids = append(ids, cr.ID)
	}
	assert.Equal(t, []string{
		"fl_001", "fl_002", "fl_003", "fl_004", "fl_005",
		"sl_001", "sl_002", "sl_003", "sl_004",
		"tl_001", "tl_002", "tl_003", "tl_004",
	}, ids)
}

func TestRegistry_RejectsDuplicateID(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(testRule("x")))

	err := r.Register(testRule("x"))
	assert.ErrorIs(t, err, ErrDuplicateRuleID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RejectsInvalidRules(t *testing.T) {
	r := NewRegistry(nil)

	noID := testRule("")
	assert.ErrorIs(t, r.Register(noID), ErrInvalidRule)

	badLaw := testRule("a")
	badLaw.Law = 4
	assert.ErrorIs(t, r.Register(badLaw), ErrInvalidRule)

	badAction := testRule("b")
	badAction.Action = "explode"
	assert.ErrorIs(t, r.Register(badAction), ErrInvalidRule)

	badCond := testRule("c")
	badCond.Condition = domain.Condition{Op: "script", Attr: "x"}
	assert.ErrorIs(t, r.Register(badCond), ErrInvalidPredicate)

	assert.Zero(t, r.Len())
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterAll([]domain.Rule{testRule("a"), testRule("b")}))

	before := r.All()

	require.NoError(t, r.SetEnabled("a", false))
	assert.Equal(t, 1, r.EnabledLen())
	assert.Len(t, r.Enabled(), 1)
	assert.Equal(t, "b", r.Enabled()[0].ID)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.False(t, got.Enabled)

	// Ранее выданный снимок не меняется.
	assert.True(t, before[0].Enabled)

	// Идемпотентно.
	require.NoError(t, r.SetEnabled("a", false))

	err := r.SetEnabled("zzz", true)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRegistry_Load(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Load(context.Background(), stubRepo{rules: []domain.Rule{testRule("db_1")}}))
	_, ok := r.Get("db_1")
	assert.True(t, ok)

	boom := errors.New("boom")
	err := r.Load(context.Background(), stubRepo{err: boom})
	assert.ErrorIs(t, err, boom)

	err = r.Load(context.Background(), stubRepo{rules: []domain.Rule{testRule("db_1")}})
	assert.ErrorIs(t, err, ErrDuplicateRuleID)
}
