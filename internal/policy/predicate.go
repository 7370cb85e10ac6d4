package policy

/*
Файл predicate.go реализует ConditionEvaluator: вычисление условия правила
над атрибутами контекста действия.

Условие: закрытое дерево (domain.Condition): сравнения, принадлежность множеству,
числовые сравнения и and/or/not. Никакой интерпретации строк как кода:
все проверки формы дерева выполняются один раз в Compile (при регистрации правила),
а Match не может завершиться ошибкой.

Логика трехзначная: отсутствующий атрибут дает "unknown", который на корне
превращается в false. Так not(missing) не срабатывает случайно.
*/

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

const maxConditionDepth = 16

type tri int8

const (
	triFalse tri = iota
	triTrue
	triUnknown
)

type node interface {
	eval(attrs map[string]any, missing map[string]struct{}) tri
}

// Predicate: скомпилированное условие правила.
type Predicate struct {
	root node
}

// Compile проверяет дерево и строит из него Predicate.
// Любая ошибка формы возвращается как ErrInvalidPredicate.
func Compile(c domain.Condition) (Predicate, error) {
	n, err := compileNode(c, 1)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{root: n}, nil
}

// Match вычисляет условие. Второе значение: отсортированный список атрибутов,
// которых не оказалось в контексте (для логирования, не ошибка).
func (p Predicate) Match(attrs map[string]any) (bool, []string) {
	if p.root == nil {
		return false, nil
	}
	missing := make(map[string]struct{})
	res := p.root.eval(attrs, missing)

	var names []string
	if len(missing) > 0 {
		names = make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
	}
	return res == triTrue, names
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPredicate, fmt.Sprintf(format, args...))
}

func compileNode(c domain.Condition, depth int) (node, error) {
	if depth > maxConditionDepth {
		return nil, invalid("condition nesting exceeds %d levels", maxConditionDepth)
	}

	switch c.Op {
	case domain.OpAnd, domain.OpOr:
		if c.Attr != "" || c.Ref != "" || c.Value != nil || len(c.Values) > 0 {
			return nil, invalid("%s takes only args", c.Op)
		}
		if len(c.Args) == 0 {
			return nil, invalid("%s requires at least one argument", c.Op)
		}
		children := make([]node, 0, len(c.Args))
		for _, a := range c.Args {
			ch, err := compileNode(a, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		if c.Op == domain.OpAnd {
			return andNode(children), nil
		}
		return orNode(children), nil

	case domain.OpNot:
		if c.Attr != "" || c.Ref != "" || c.Value != nil || len(c.Values) > 0 {
			return nil, invalid("not takes only args")
		}
		if len(c.Args) != 1 {
			return nil, invalid("not requires exactly one argument, got %d", len(c.Args))
		}
		ch, err := compileNode(c.Args[0], depth+1)
		if err != nil {
			return nil, err
		}
		return notNode{inner: ch}, nil

	case domain.OpEq, domain.OpNe:
		if err := checkLeaf(c); err != nil {
			return nil, err
		}
		if len(c.Values) > 0 {
			return nil, invalid("%s on %q does not take values", c.Op, c.Attr)
		}
		operand, err := compileOperand(c, false)
		if err != nil {
			return nil, err
		}
		return eqNode{attr: c.Attr, rhs: operand, negate: c.Op == domain.OpNe}, nil

	case domain.OpIn, domain.OpNotIn:
		if err := checkLeaf(c); err != nil {
			return nil, err
		}
		if c.Ref != "" || c.Value != nil {
			return nil, invalid("%s on %q takes only values", c.Op, c.Attr)
		}
		if len(c.Values) == 0 {
			return nil, invalid("%s on %q requires a non-empty value set", c.Op, c.Attr)
		}
		set := make([]any, 0, len(c.Values))
		for _, v := range c.Values {
			nv, ok := normalizeScalar(v)
			if !ok {
				return nil, invalid("%s on %q: value %v is not a scalar", c.Op, c.Attr, v)
			}
			set = append(set, nv)
		}
		return inNode{attr: c.Attr, set: set, negate: c.Op == domain.OpNotIn}, nil

	case domain.OpLt, domain.OpLe, domain.OpGt, domain.OpGe:
		if err := checkLeaf(c); err != nil {
			return nil, err
		}
		if len(c.Values) > 0 {
			return nil, invalid("%s on %q does not take values", c.Op, c.Attr)
		}
		operand, err := compileOperand(c, true)
		if err != nil {
			return nil, err
		}
		return cmpNode{attr: c.Attr, rhs: operand, op: c.Op}, nil

	case "":
		return nil, invalid("missing op")
	}
	return nil, invalid("unknown op %q", c.Op)
}

func checkLeaf(c domain.Condition) error {
	if c.Attr == "" {
		return invalid("%s requires attr", c.Op)
	}
	if len(c.Args) > 0 {
		return invalid("%s on %q does not take args", c.Op, c.Attr)
	}
	return nil
}

// operand: правая часть сравнения, литерал или ссылка на другой атрибут.
type operand struct {
	ref     string
	literal any
}

func (o operand) resolve(attrs map[string]any, missing map[string]struct{}) (any, bool) {
	if o.ref == "" {
		return o.literal, true
	}
	v, ok := lookup(attrs, o.ref)
	if !ok {
		missing[o.ref] = struct{}{}
	}
	return v, ok
}

func compileOperand(c domain.Condition, numeric bool) (operand, error) {
	hasValue := c.Value != nil
	hasRef := c.Ref != ""
	if hasValue == hasRef {
		return operand{}, invalid("%s on %q requires exactly one of value or ref", c.Op, c.Attr)
	}
	if hasRef {
		return operand{ref: c.Ref}, nil
	}
	v, ok := normalizeScalar(c.Value)
	if !ok {
		return operand{}, invalid("%s on %q: value %v is not a scalar", c.Op, c.Attr, c.Value)
	}
	if numeric {
		if !isNumber(v) {
			return operand{}, invalid("%s on %q requires a numeric value", c.Op, c.Attr)
		}
	}
	return operand{literal: v}, nil
}

type andNode []node

func (n andNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	res := triTrue
	for _, ch := range n {
		switch ch.eval(attrs, missing) {
		case triFalse:
			res = triFalse
		case triUnknown:
			if res == triTrue {
				res = triUnknown
			}
		}
	}
	return res
}

type orNode []node

func (n orNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	res := triFalse
	for _, ch := range n {
		switch ch.eval(attrs, missing) {
		case triTrue:
			res = triTrue
		case triUnknown:
			if res == triFalse {
				res = triUnknown
			}
		}
	}
	return res
}

type notNode struct {
	inner node
}

func (n notNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	switch n.inner.eval(attrs, missing) {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	}
	return triUnknown
}

type eqNode struct {
	attr   string
	rhs    operand
	negate bool
}

func (n eqNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	lhs, ok := lookup(attrs, n.attr)
	if !ok {
		missing[n.attr] = struct{}{}
	}
	rhs, rok := n.rhs.resolve(attrs, missing)
	if !ok || !rok {
		return triUnknown
	}
	return boolTri(scalarEqual(lhs, rhs) != n.negate)
}

type inNode struct {
	attr   string
	set    []any
	negate bool
}

func (n inNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	v, ok := lookup(attrs, n.attr)
	if !ok {
		missing[n.attr] = struct{}{}
		return triUnknown
	}
	found := false
	for _, s := range n.set {
		if scalarEqual(v, s) {
			found = true
			break
		}
	}
	return boolTri(found != n.negate)
}

type cmpNode struct {
	attr string
	rhs  operand
	op   domain.ConditionOp
}

func (n cmpNode) eval(attrs map[string]any, missing map[string]struct{}) tri {
	lv, ok := lookup(attrs, n.attr)
	if !ok {
		missing[n.attr] = struct{}{}
	}
	rv, rok := n.rhs.resolve(attrs, missing)
	if !ok || !rok {
		return triUnknown
	}
	c, ok := compareNumbers(lv, rv)
	if !ok {
		return triFalse
	}
	switch n.op {
	case domain.OpLt:
		return boolTri(c < 0)
	case domain.OpLe:
		return boolTri(c <= 0)
	case domain.OpGt:
		return boolTri(c > 0)
	case domain.OpGe:
		return boolTri(c >= 0)
	}
	return triFalse
}

func boolTri(b bool) tri {
	if b {
		return triTrue
	}
	return triFalse
}

// lookup достает атрибут и приводит его к нормальной скалярной форме.
// Нескалярное значение трактуется как отсутствующее.
func lookup(attrs map[string]any, name string) (any, bool) {
	v, ok := attrs[name]
	if !ok || v == nil {
		return nil, false
	}
	return normalizeScalar(v)
}

func scalarEqual(a, b any) bool {
	switch x := a.(type) {
	case float64, *big.Int:
		c, ok := compareNumbers(x, b)
		return ok && c == 0
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, *big.Int:
		return true
	}
	return false
}

// compareNumbers сравнивает нормализованные числа точно, в том числе
// большое целое с float64. false: хотя бы одно значение не число.
func compareNumbers(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		switch y := b.(type) {
		case float64:
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		case *big.Int:
			c, _ := compareNumbers(y, x)
			return -c, true
		}
	case *big.Int:
		switch y := b.(type) {
		case *big.Int:
			return x.Cmp(y), true
		case float64:
			return new(big.Float).SetInt(x).Cmp(big.NewFloat(y)), true
		}
	}
	return 0, false
}

// maxExactInt: целые по модулю до 2^53 представимы в float64 без потерь.
const maxExactInt = 1 << 53

// normalizeScalar приводит числа к float64, а целые за пределами 2^53 к *big.Int,
// чтобы разные большие идентификаторы не становились равными.
// Возвращает false для nil, NaN и нескалярных значений (map, slice, struct).
func normalizeScalar(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool:
		return x, true
	case float64:
		if math.IsNaN(x) {
			return nil, false
		}
		return x, true
	case float32:
		return normalizeScalar(float64(x))
	case *big.Int:
		if x == nil {
			return nil, false
		}
		return normalizeBigInt(x), true
	case int:
		return normalizeInt64(int64(x)), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return normalizeInt64(x), true
	case uint:
		return normalizeUint64(uint64(x)), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return normalizeUint64(x), true
	case json.Number:
		if i, ok := new(big.Int).SetString(x.String(), 10); ok {
			return normalizeBigInt(i), true
		}
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return normalizeScalar(f)
	}
	return nil, false
}

func normalizeInt64(x int64) any {
	if x >= -maxExactInt && x <= maxExactInt {
		return float64(x)
	}
	return big.NewInt(x)
}

func normalizeUint64(x uint64) any {
	if x <= maxExactInt {
		return float64(x)
	}
	return new(big.Int).SetUint64(x)
}

func normalizeBigInt(x *big.Int) any {
	if x.IsInt64() {
		return normalizeInt64(x.Int64())
	}
	return new(big.Int).Set(x)
}

// IsScalar сообщает, допустимо ли значение в контексте действия.
func IsScalar(v any) bool {
	_, ok := normalizeScalar(v)
	return ok
}

// Builders для описания правил в коде.

func Eq(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpEq, Attr: attr, Value: v}
}

func Ne(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpNe, Attr: attr, Value: v}
}

func In(attr string, vs ...any) domain.Condition {
	return domain.Condition{Op: domain.OpIn, Attr: attr, Values: vs}
}

func NotIn(attr string, vs ...any) domain.Condition {
	return domain.Condition{Op: domain.OpNotIn, Attr: attr, Values: vs}
}

func Lt(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpLt, Attr: attr, Value: v}
}

func Le(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpLe, Attr: attr, Value: v}
}

func Gt(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpGt, Attr: attr, Value: v}
}

func Ge(attr string, v any) domain.Condition {
	return domain.Condition{Op: domain.OpGe, Attr: attr, Value: v}
}

// LtAttr сравнивает два атрибута контекста: attr < ref.
func LtAttr(attr, ref string) domain.Condition {
	return domain.Condition{Op: domain.OpLt, Attr: attr, Ref: ref}
}

func And(args ...domain.Condition) domain.Condition {
	return domain.Condition{Op: domain.OpAnd, Args: args}
}

func Or(args ...domain.Condition) domain.Condition {
	return domain.Condition{Op: domain.OpOr, Args: args}
}

func Not(arg domain.Condition) domain.Condition {
	return domain.Condition{Op: domain.OpNot, Args: []domain.Condition{arg}}
}
