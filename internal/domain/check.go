package domain

// DefaultApprovalLevel: кто по умолчанию подтверждает операцию, требующую апрува.
const DefaultApprovalLevel = "operator"

// SafetyCheck: вердикт движка для одного действия или миссии.
// Единственный контракт, по которому вызывающая сторона решает allow/deny/approval,
// и одновременно полезная нагрузка записи аудита, поэтому имена полей фиксированы.
type SafetyCheck struct {
	Approved         bool        `json:"approved"`
	ViolatedLaws     []Law       `json:"violatedLaws"`
	ViolatedRules    []string    `json:"violatedRules"`
	SafetyLevel      SafetyLevel `json:"safetyLevel"`
	Reason           string      `json:"reason"`
	Recommendations  []string    `json:"recommendations"`
	RequiresApproval bool        `json:"requiresApproval"`
	ApprovalLevel    string      `json:"approvalLevel"`
}

// Clone возвращает глубокую копию, чтобы запись аудита нельзя было изменить через вердикт.
func (c SafetyCheck) Clone() SafetyCheck {
	out := c
	out.ViolatedLaws = append([]Law{}, c.ViolatedLaws...)
	out.ViolatedRules = append([]string{}, c.ViolatedRules...)
	out.Recommendations = append([]string{}, c.Recommendations...)
	return out
}

// HasLaw проверяет, нарушен ли закон l.
func (c SafetyCheck) HasLaw(l Law) bool {
	for _, v := range c.ViolatedLaws {
		if v == l {
			return true
		}
	}
	return false
}
