package domain

import (
	"fmt"
	"strings"
)

// SafetyLevel: уровень опасности операции.
// Порядок задается явной таблицей levelRank, а не порядком объявления:
// от него зависит агрегация вердиктов через MaxLevel.
type SafetyLevel string

const (
	LevelSafe       SafetyLevel = "SAFE"
	LevelCaution    SafetyLevel = "CAUTION"
	LevelDangerous  SafetyLevel = "DANGEROUS"
	LevelProhibited SafetyLevel = "PROHIBITED"
)

var levelRank = map[SafetyLevel]int{
	LevelSafe:       0,
	LevelCaution:    1,
	LevelDangerous:  2,
	LevelProhibited: 3,
}

func (s SafetyLevel) Valid() bool {
	_, ok := levelRank[s]
	return ok
}

// Rank возвращает позицию уровня в полном порядке.
// Неизвестный уровень считается PROHIBITED (fail-closed).
func (s SafetyLevel) Rank() int {
	if r, ok := levelRank[s]; ok {
		return r
	}
	return levelRank[LevelProhibited]
}

// MaxLevel: максимум по порядку SAFE < CAUTION < DANGEROUS < PROHIBITED.
func MaxLevel(levels ...SafetyLevel) SafetyLevel {
	out := LevelSafe
	for _, l := range levels {
		if !l.Valid() {
			return LevelProhibited
		}
		if l.Rank() > out.Rank() {
			out = l
		}
	}
	return out
}

func ParseSafetyLevel(s string) (SafetyLevel, error) {
	l := SafetyLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("domain: unknown safety level %q", s)
	}
	return l, nil
}
