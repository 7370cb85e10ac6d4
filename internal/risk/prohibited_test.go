package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProhibitedSet(t *testing.T) {
	ps := NewProhibitedSet()

	assert.Equal(t, 19, ps.Len())
	assert.True(t, ps.Contains("doxxing"))
	assert.True(t, ps.Contains("air_traffic_control_attack"))
	assert.False(t, ps.Contains("scan_network"))
	assert.False(t, ps.Contains("DOXXING"), "match is exact")

	actions := ps.Actions()
	assert.Len(t, actions, 19)
	actions[0] = "tampered"
	assert.True(t, ps.Contains("physical_attack"))
}
