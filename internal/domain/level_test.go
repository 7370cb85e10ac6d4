package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var allLevels = []SafetyLevel{LevelSafe, LevelCaution, LevelDangerous, LevelProhibited}

func TestSafetyLevel_TotalOrder(t *testing.T) {
	for i := 1; i < len(allLevels); i++ {
		assert.Less(t, allLevels[i-1].Rank(), allLevels[i].Rank(), "%s < %s", allLevels[i-1], allLevels[i])
	}
}

func TestMaxLevel(t *testing.T) {
	assert.Equal(t, LevelSafe, MaxLevel())
	assert.Equal(t, LevelCaution, MaxLevel(LevelSafe, LevelCaution))
	assert.Equal(t, LevelProhibited, MaxLevel(LevelProhibited, LevelCaution, LevelDangerous))
	assert.Equal(t, LevelProhibited, MaxLevel(LevelSafe, SafetyLevel("bogus")), "unknown level must fail closed")
}

func TestParseSafetyLevel(t *testing.T) {
	l, err := ParseSafetyLevel(" dangerous ")
	assert.NoError(t, err)
	assert.Equal(t, LevelDangerous, l)

	_, err = ParseSafetyLevel("fine")
	assert.Error(t, err)
}

func genLevel() gopter.Gen {
	return gen.IntRange(0, len(allLevels)-1).Map(func(i int) SafetyLevel { return allLevels[i] })
}

func TestMaxLevel_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("max is commutative", prop.ForAll(
		func(a, b SafetyLevel) bool {
			return MaxLevel(a, b) == MaxLevel(b, a)
		},
		genLevel(), genLevel(),
	))

	properties.Property("max is an upper bound of every argument", prop.ForAll(
		func(levels []SafetyLevel) bool {
			m := MaxLevel(levels...)
			for _, l := range levels {
				if l.Rank() > m.Rank() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genLevel()),
	))

	properties.Property("adding PROHIBITED always yields PROHIBITED", prop.ForAll(
		func(levels []SafetyLevel) bool {
			return MaxLevel(append(levels, LevelProhibited)...) == LevelProhibited
		},
		gen.SliceOf(genLevel()),
	))

	properties.TestingRun(t)
}
