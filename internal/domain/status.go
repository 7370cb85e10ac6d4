package domain

// Status: снимок состояния движка для health-check и дашборда.
type Status struct {
	EmergencyStopActive   bool `json:"emergencyStopActive"`
	RuleCount             int  `json:"ruleCount"`
	EnabledRuleCount      int  `json:"enabledRuleCount"`
	ProhibitedActionCount int  `json:"prohibitedActionCount"`
	RecentCheckCount      int  `json:"recentCheckCount"`
}
