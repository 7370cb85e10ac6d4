package audit

import (
	"time"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

// Entry: запись журнала аудита об одном решении движка.
// После записи не меняется: Trail хранит копии и отдает копии.
type Entry struct {
	ID                  string             `json:"id"`         // UUID записи
	Timestamp           time.Time          `json:"timestamp"`  // Время проверки
	ActionType          string             `json:"actionType"` // Что проверяли
	Context             map[string]any     `json:"context"`    // Снимок контекста
	Verdict             domain.SafetyCheck `json:"verdict"`
	EmergencyStopActive bool               `json:"emergencyStopActive"` // Состояние аварийной остановки в момент проверки
}

func (e Entry) clone() Entry {
	out := e
	if e.Context != nil {
		out.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			out.Context[k] = v
		}
	}
	out.Verdict = e.Verdict.Clone()
	return out
}
