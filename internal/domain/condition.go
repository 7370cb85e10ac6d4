package domain

// ConditionOp: тег узла в дереве условия правила.
type ConditionOp string

const (
	OpEq    ConditionOp = "eq"
	OpNe    ConditionOp = "ne"
	OpIn    ConditionOp = "in"
	OpNotIn ConditionOp = "not_in"
	OpLt    ConditionOp = "lt"
	OpLe    ConditionOp = "le"
	OpGt    ConditionOp = "gt"
	OpGe    ConditionOp = "ge"
	OpAnd   ConditionOp = "and"
	OpOr    ConditionOp = "or"
	OpNot   ConditionOp = "not"
)

// Condition: закрытое (без исполнения кода) дерево условия над атрибутами контекста.
// Хранится в БД как JSONB и в файле правил как YAML, компилируется пакетом policy.
//
// Листья (eq/ne/in/not_in/lt/le/gt/ge) сравнивают атрибут Attr либо с литералом Value/Values,
// либо с другим атрибутом Ref. Узлы and/or/not комбинируют Args.
type Condition struct {
	Op     ConditionOp `json:"op" yaml:"op"`
	Attr   string      `json:"attr,omitempty" yaml:"attr,omitempty"`
	Value  any         `json:"value,omitempty" yaml:"value,omitempty"`
	Values []any       `json:"values,omitempty" yaml:"values,omitempty"`
	Ref    string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Args   []Condition `json:"args,omitempty" yaml:"args,omitempty"`
}
