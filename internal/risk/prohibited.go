package risk

// ProhibitedSet: действия, которые запрещены всегда, независимо от правил.
type ProhibitedSet struct {
	actions map[string]struct{}
}

var defaultProhibited = []string{
	// Физический вред
	"physical_attack",
	"weapon_systems",
	"explosive_devices",

	// Критическая инфраструктура
	"power_grid_attack",
	"water_supply_attack",
	"hospital_systems_attack",
	"emergency_services_attack",
	"air_traffic_control_attack",

	// Вред людям
	"doxxing",
	"stalking",
	"harassment",
	"identity_theft",
	"financial_fraud",

	// Разрушение данных
	"data_destruction",
	"system_corruption",
	"permanent_damage",

	// Приватность
	"unauthorized_surveillance",
	"private_data_theft",
	"medical_record_access",
}

func NewProhibitedSet() *ProhibitedSet {
	ps := &ProhibitedSet{actions: make(map[string]struct{}, len(defaultProhibited))}
	for _, a := range defaultProhibited {
		ps.actions[a] = struct{}{}
	}
	return ps
}

func (p *ProhibitedSet) Contains(actionType string) bool {
	_, ok := p.actions[actionType]
	return ok
}

func (p *ProhibitedSet) Len() int {
	return len(p.actions)
}

// Actions: список запрещенных действий в фиксированном порядке.
func (p *ProhibitedSet) Actions() []string {
	return append([]string(nil), defaultProhibited...)
}
