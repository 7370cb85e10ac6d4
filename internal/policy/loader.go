package policy

import (
	"fmt"
	"os"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

// ruleFile: формат YAML-файла с дополнительными правилами.
//
//	rules:
//	  - id: ops_001
//	    law: THIRD
//	    name: Night freeze
//	    action: require_approval
//	    priority: 5
//	    condition:
//	      op: eq
//	      attr: maintenance_window
//	      value: false
type ruleFile struct {
	Rules []fileRule `yaml:"rules"`
}

type fileRule struct {
	ID          string            `yaml:"id"`
	Law         string            `yaml:"law"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Condition   domain.Condition  `yaml:"condition"`
	Action      domain.RuleAction `yaml:"action"`
	Priority    int               `yaml:"priority"`
	Enabled     *bool             `yaml:"enabled"`
	Metadata    map[string]any    `yaml:"metadata"`
}

// LoadRulesFile читает правила из YAML. Пустой путь: нет дополнительных правил.
// Проверка условий выполняется позже, при регистрации в Registry.
func LoadRulesFile(path string) ([]domain.Rule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules разбирает содержимое файла правил.
func ParseRules(data []byte) ([]domain.Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	out := make([]domain.Rule, 0, len(f.Rules))
	for i, fr := range f.Rules {
		law, err := domain.ParseLaw(fr.Law)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d] (%s): %v", ErrInvalidRule, i, fr.ID, err)
		}
		enabled := true
		if fr.Enabled != nil {
			enabled = *fr.Enabled
		}
		out = append(out, domain.Rule{
			ID:          fr.ID,
			Law:         law,
			Name:        fr.Name,
			Description: fr.Description,
			Condition:   fr.Condition,
			Action:      fr.Action,
			Priority:    fr.Priority,
			Enabled:     enabled,
			Metadata:    fr.Metadata,
		})
	}
	return out, nil
}
