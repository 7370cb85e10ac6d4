package policy

import "github.com/xela07ax/spaceai-safety-engine/internal/domain"

// CoreRules: базовый каталог правил по трем законам.
// Порядок в списке: порядок вычисления.
func CoreRules() []domain.Rule {
	first := []domain.Rule{
		{
			ID:          "fl_001",
			Law:         domain.LawFirst,
			Name:        "No Human Harm",
			Description: "Prevent any action that could directly harm humans",
			Condition:   In("action_type", "physical_access", "social_engineering", "doxxing"),
			Action:      domain.ActionBlock,
			Priority:    1,
		},
		{
			ID:          "fl_002",
			Law:         domain.LawFirst,
			Name:        "No Critical Infrastructure Attack",
			Description: "Prevent attacks on critical infrastructure",
			Condition:   In("target_type", "hospital", "power_grid", "water_supply", "emergency_services"),
			Action:      domain.ActionBlock,
			Priority:    1,
		},
		{
			ID:          "fl_003",
			Law:         domain.LawFirst,
			Name:        "No Personal Data Exposure",
			Description: "Prevent exposure of personal sensitive data",
			Condition:   In("data_type", "pii", "medical", "financial", "personal"),
			Action:      domain.ActionRequireApproval,
			Priority:    2,
		},
		{
			ID:          "fl_004",
			Law:         domain.LawFirst,
			Name:        "No Destructive Operations",
			Description: "Prevent destructive operations that could cause harm",
			Condition:   In("operation_type", "delete", "destroy", "corrupt", "wipe"),
			Action:      domain.ActionRequireApproval,
			Priority:    2,
		},
		{
			ID:          "fl_005",
			Law:         domain.LawFirst,
			Name:        "Privacy Protection",
			Description: "Protect individual privacy rights",
			Condition:   Eq("involves_private_data", true),
			Action:      domain.ActionRequireJustification,
			Priority:    3,
		},
	}

	second := []domain.Rule{
		{
			ID:          "sl_001",
			Law:         domain.LawSecond,
			Name:        "Operator Command Authority",
			Description: "Follow authenticated operator commands",
			Condition:   Eq("operator_authenticated", true),
			Action:      domain.ActionAllow,
			Priority:    4,
		},
		{
			ID:          "sl_002",
			Law:         domain.LawSecond,
			Name:        "Emergency Override",
			Description: "Allow emergency override by authorized personnel",
			Condition: And(
				Eq("emergency_override", true),
				In("authorization_level", "admin", "superadmin"),
			),
			Action:   domain.ActionAllowWithLogging,
			Priority: 3,
		},
		{
			ID:          "sl_003",
			Law:         domain.LawSecond,
			Name:        "Command Validation",
			Description: "Validate commands don't violate First Law",
			Condition:   Eq("command_violates_first_law", true),
			Action:      domain.ActionBlock,
			Priority:    1,
		},
		{
			ID:          "sl_004",
			Law:         domain.LawSecond,
			Name:        "Authorization Check",
			Description: "Ensure operator has required permissions",
			Condition:   LtAttr("operator_permission_level", "required_permission_level"),
			Action:      domain.ActionBlock,
			Priority:    2,
		},
	}

	third := []domain.Rule{
		{
			ID:          "tl_001",
			Law:         domain.LawThird,
			Name:        "System Protection",
			Description: "Protect system integrity and availability",
			Condition:   Eq("action_threatens_system", true),
			Action:      domain.ActionRequireApproval,
			Priority:    5,
		},
		{
			ID:          "tl_002",
			Law:         domain.LawThird,
			Name:        "Resource Protection",
			Description: "Prevent resource exhaustion",
			Condition:   Gt("resource_usage", 90),
			Action:      domain.ActionLimitOperations,
			Priority:    6,
		},
		{
			ID:          "tl_003",
			Law:         domain.LawThird,
			Name:        "Data Integrity",
			Description: "Protect mission logs and evidence",
			Condition:   Eq("action_type", "modify_logs"),
			Action:      domain.ActionBlock,
			Priority:    4,
		},
		{
			ID:          "tl_004",
			Law:         domain.LawThird,
			Name:        "Network Security",
			Description: "Maintain secure communications",
			Condition:   Eq("communication_insecure", true),
			Action:      domain.ActionRequireEncryption,
			Priority:    5,
		},
	}

	all := make([]domain.Rule, 0, len(first)+len(second)+len(third))
	all = append(all, first...)
	all = append(all, second...)
	all = append(all, third...)
	for i := range all {
		all[i].Enabled = true
	}
	return all
}
