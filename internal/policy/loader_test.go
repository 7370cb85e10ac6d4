package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

const sampleRules = `
rules:
  - id: ops_001
    law: THIRD
    name: Maintenance freeze
    action: require_approval
    priority: 5
    condition:
      op: and
      args:
        - op: eq
          attr: maintenance_window
          value: false
        - op: ge
          attr: resource_usage
          value: 75
  - id: ops_002
    law: 1
    name: No exfil to unknown hosts
    action: block
    enabled: false
    condition:
      op: in
      attr: destination
      values: [pastebin, anonfiles]
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "ops_001", rules[0].ID)
	assert.Equal(t, domain.LawThird, rules[0].Law)
	assert.Equal(t, domain.ActionRequireApproval, rules[0].Action)
	assert.True(t, rules[0].Enabled)
	assert.Equal(t, domain.OpAnd, rules[0].Condition.Op)

	assert.Equal(t, domain.LawFirst, rules[1].Law)
	assert.False(t, rules[1].Enabled)

	r := NewRegistry(nil)
	require.NoError(t, r.RegisterAll(rules))

	cr, ok := r.Get("ops_001")
	require.True(t, ok)
	matched, _ := cr.Predicate.Match(map[string]any{"maintenance_window": false, "resource_usage": 80})
	assert.True(t, matched)
}

func TestParseRules_BadLaw(t *testing.T) {
	_, err := ParseRules([]byte("rules:\n  - id: x\n    law: FOURTH\n    action: block\n"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestLoadRulesFile(t *testing.T) {
	rules, err := LoadRulesFile("")
	require.NoError(t, err)
	assert.Nil(t, rules)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rules, err = LoadRulesFile(path)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
