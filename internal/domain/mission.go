package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mission: описание миссии, которую проверяют перед созданием.
// Fields содержит прочие поля верхнего уровня (name, target_type, ...),
// в JSON они лежат рядом с id/priority/objectives, а не во вложенном объекте.
type Mission struct {
	ID         string
	Priority   any
	Objectives []map[string]any
	Fields     map[string]any
}

func (m *Mission) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("domain: decode mission: %w", err)
	}

	out := Mission{Fields: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case "id":
			s, ok := v.(string)
			if !ok && v != nil {
				return fmt.Errorf("domain: mission id must be a string")
			}
			out.ID = s
		case "priority":
			out.Priority = v
		case "objectives":
			if v == nil {
				continue
			}
			list, ok := v.([]any)
			if !ok {
				return fmt.Errorf("domain: mission objectives must be a list")
			}
			for i, item := range list {
				obj, ok := item.(map[string]any)
				if !ok {
					return fmt.Errorf("domain: objective %d must be an object", i)
				}
				out.Objectives = append(out.Objectives, obj)
			}
		default:
			out.Fields[k] = v
		}
	}

	*m = out
	return nil
}

func (m Mission) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(m.Fields)+3)
	for k, v := range m.Fields {
		raw[k] = v
	}
	raw["id"] = m.ID
	if m.Priority != nil {
		raw["priority"] = m.Priority
	}
	objectives := m.Objectives
	if objectives == nil {
		objectives = []map[string]any{}
	}
	raw["objectives"] = objectives
	return json.Marshal(raw)
}

// MissionExecution: данные миссии на контрольной точке непосредственно перед автономным исполнением.
type MissionExecution struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Priority         any    `json:"priority,omitempty"`
	AssignedOperator string `json:"assigned_operator"`
}
