package domain

// RuleAction определяет, что делать при срабатывании условия правила.
type RuleAction string

const (
	ActionAllow                RuleAction = "allow"
	ActionBlock                RuleAction = "block"
	ActionRequireApproval      RuleAction = "require_approval"
	ActionRequireJustification RuleAction = "require_justification"
	ActionAllowWithLogging     RuleAction = "allow_with_logging"
	ActionLimitOperations      RuleAction = "limit_operations"
	ActionRequireEncryption    RuleAction = "require_encryption"
)

var knownActions = map[RuleAction]struct{}{
	ActionAllow:                {},
	ActionBlock:                {},
	ActionRequireApproval:      {},
	ActionRequireJustification: {},
	ActionAllowWithLogging:     {},
	ActionLimitOperations:      {},
	ActionRequireEncryption:    {},
}

func (a RuleAction) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Rule: именованная пара условие/действие, регулирующая категорию поведения агента.
// После регистрации неизменяема, кроме флага Enabled.
type Rule struct {
	ID          string         `json:"id" yaml:"id"`
	Law         Law            `json:"law" yaml:"law"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Condition   Condition      `json:"condition" yaml:"condition"`
	Action      RuleAction     `json:"action" yaml:"action"`
	Priority    int            `json:"priority" yaml:"priority"` // меньше = срочнее
	Enabled     bool           `json:"enabled" yaml:"enabled"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
