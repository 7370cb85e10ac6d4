package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
)

// Имена псевдо-правил, которые попадают в violatedRules помимо id правил каталога.
const (
	RuleEmergencyStop    = "emergency_stop"
	RuleProhibitedAction = "prohibited_action"
	RuleInternalFault    = "internal_fault"
	rulePatternPrefix    = "dangerous_pattern: "
)

// verdictBuilder накапливает эффекты всех сработавших источников.
// Уровень всегда берется как максимум по domain.MaxLevel, правила идут в порядке вычисления без дублей.
type verdictBuilder struct {
	laws             map[domain.Law]struct{}
	rules            []string
	seenRules        map[string]struct{}
	level            domain.SafetyLevel
	requiresApproval bool
	recommendations  []string
}

func newVerdictBuilder() *verdictBuilder {
	return &verdictBuilder{
		laws:      make(map[domain.Law]struct{}),
		seenRules: make(map[string]struct{}),
		level:     domain.LevelSafe,
	}
}

func (b *verdictBuilder) raise(level domain.SafetyLevel) {
	b.level = domain.MaxLevel(b.level, level)
}

func (b *verdictBuilder) violate(law domain.Law, ruleID string, level domain.SafetyLevel) {
	b.laws[law] = struct{}{}
	b.addRule(ruleID)
	b.raise(level)
}

func (b *verdictBuilder) addRule(ruleID string) {
	if _, ok := b.seenRules[ruleID]; ok {
		return
	}
	b.seenRules[ruleID] = struct{}{}
	b.rules = append(b.rules, ruleID)
}

func (b *verdictBuilder) recommend(s string) {
	b.recommendations = append(b.recommendations, s)
}

// apply: эффект сработавшего правила каталога.
func (b *verdictBuilder) apply(rule domain.Rule) {
	switch rule.Action {
	case domain.ActionBlock:
		b.violate(rule.Law, rule.ID, domain.LevelProhibited)
	case domain.ActionRequireApproval:
		b.requiresApproval = true
		b.raise(domain.LevelCaution)
		b.recommend("Requires approval: " + rule.Description)
	case domain.ActionRequireJustification:
		b.requiresApproval = true
		b.raise(domain.LevelCaution)
		b.recommend("Requires justification: " + rule.Description)
	case domain.ActionLimitOperations:
		b.raise(domain.LevelCaution)
		b.recommend("Limit operations: " + rule.Description)
	case domain.ActionRequireEncryption:
		b.raise(domain.LevelCaution)
		b.recommend("Requires encryption: " + rule.Description)
	case domain.ActionAllow, domain.ActionAllowWithLogging:
		// не меняют вердикт: разрешение не перекрывает блокировки других правил
	}
}

func (b *verdictBuilder) sortedLaws() []domain.Law {
	laws := make([]domain.Law, 0, len(b.laws))
	for l := range b.laws {
		laws = append(laws, l)
	}
	sort.Slice(laws, func(i, j int) bool { return laws[i] < laws[j] })
	return laws
}

// build собирает вердикт для одного действия.
func (b *verdictBuilder) build(operatorApproved bool) domain.SafetyCheck {
	laws := b.sortedLaws()
	approved := len(laws) == 0 &&
		b.level != domain.LevelProhibited &&
		(!b.requiresApproval || operatorApproved)

	return domain.SafetyCheck{
		Approved:         approved,
		ViolatedLaws:     laws,
		ViolatedRules:    append([]string{}, b.rules...),
		SafetyLevel:      b.level,
		Reason:           actionReason(laws, b.rules, b.level, approved),
		Recommendations:  append([]string{}, b.recommendations...),
		RequiresApproval: b.requiresApproval,
		ApprovalLevel:    domain.DefaultApprovalLevel,
	}
}

func actionReason(laws []domain.Law, rules []string, level domain.SafetyLevel, approved bool) string {
	if len(laws) == 0 {
		if approved {
			return "Action approved - no safety violations detected"
		}
		return fmt.Sprintf("Action requires operator approval. Safety level: %s", level)
	}

	titles := make([]string, 0, len(laws))
	for _, l := range laws {
		titles = append(titles, l.Title())
	}
	return fmt.Sprintf("Action violates %s. Safety level: %s. Rules: %s",
		strings.Join(titles, ", "), level, strings.Join(rules, ", "))
}

// AggregateMission сворачивает вердикты по целям миссии:
// AND по approved, максимум уровня (SAFE, если целей нет), объединение законов и правил,
// OR по requiresApproval. Рекомендации на уровень миссии не поднимаются.
func AggregateMission(checks []domain.SafetyCheck) domain.SafetyCheck {
	b := newVerdictBuilder()
	approved := true
	for _, c := range checks {
		approved = approved && c.Approved
		for _, l := range c.ViolatedLaws {
			b.laws[l] = struct{}{}
		}
		for _, r := range c.ViolatedRules {
			b.addRule(r)
		}
		b.raise(c.SafetyLevel)
		b.requiresApproval = b.requiresApproval || c.RequiresApproval
	}

	return domain.SafetyCheck{
		Approved:         approved,
		ViolatedLaws:     b.sortedLaws(),
		ViolatedRules:    append([]string{}, b.rules...),
		SafetyLevel:      b.level,
		Reason:           fmt.Sprintf("Mission validation: %d objectives checked", len(checks)),
		Recommendations:  []string{},
		RequiresApproval: b.requiresApproval,
		ApprovalLevel:    domain.DefaultApprovalLevel,
	}
}

func emergencyStopVerdict() domain.SafetyCheck {
	return domain.SafetyCheck{
		Approved:        false,
		ViolatedLaws:    []domain.Law{domain.LawFirst},
		ViolatedRules:   []string{RuleEmergencyStop},
		SafetyLevel:     domain.LevelProhibited,
		Reason:          "Emergency stop is active",
		Recommendations: []string{"Wait for emergency stop to be deactivated"},
		ApprovalLevel:   domain.DefaultApprovalLevel,
	}
}

func faultVerdict(cause any) domain.SafetyCheck {
	return domain.SafetyCheck{
		Approved:        false,
		ViolatedLaws:    []domain.Law{},
		ViolatedRules:   []string{RuleInternalFault},
		SafetyLevel:     domain.LevelDangerous,
		Reason:          fmt.Sprintf("Safety evaluation fault: %v", cause),
		Recommendations: []string{"Retry the check or escalate to an operator"},
		ApprovalLevel:   domain.DefaultApprovalLevel,
	}
}
