package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaw_JSON(t *testing.T) {
	data, err := json.Marshal([]Law{LawFirst, LawThird})
	require.NoError(t, err)
	assert.JSONEq(t, `["FIRST","THIRD"]`, string(data))

	var laws []Law
	require.NoError(t, json.Unmarshal([]byte(`["second","1"]`), &laws))
	assert.Equal(t, []Law{LawSecond, LawFirst}, laws)

	_, err = json.Marshal(Law(7))
	assert.Error(t, err)
}

func TestLaw_Title(t *testing.T) {
	assert.Equal(t, "First Law (Do No Harm)", LawFirst.Title())
	assert.Equal(t, "Law(9)", Law(9).Title())
}

func TestSafetyCheck_JSONFieldNames(t *testing.T) {
	c := SafetyCheck{
		Approved:         false,
		ViolatedLaws:     []Law{LawFirst},
		ViolatedRules:    []string{"fl_001"},
		SafetyLevel:      LevelProhibited,
		Reason:           "r",
		Recommendations:  []string{},
		RequiresApproval: true,
		ApprovalLevel:    DefaultApprovalLevel,
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"approved": false,
		"violatedLaws": ["FIRST"],
		"violatedRules": ["fl_001"],
		"safetyLevel": "PROHIBITED",
		"reason": "r",
		"recommendations": [],
		"requiresApproval": true,
		"approvalLevel": "operator"
	}`, string(data))

	var back SafetyCheck
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

func TestSafetyCheck_CloneIsDeep(t *testing.T) {
	c := SafetyCheck{ViolatedRules: []string{"a"}}
	cp := c.Clone()
	cp.ViolatedRules[0] = "b"
	assert.Equal(t, "a", c.ViolatedRules[0])
}
