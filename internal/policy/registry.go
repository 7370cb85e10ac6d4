package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"go.uber.org/zap"
)

// RuleRepository: внешнее хранилище каталога правил (Postgres).
// Реестр обращается к нему только при загрузке, в Hot Path работает память.
type RuleRepository interface {
	GetAllRules(ctx context.Context) ([]domain.Rule, error)
}

// CompiledRule: правило вместе со скомпилированным условием.
// Снимки, которые отдает реестр, можно свободно читать из разных горутин.
type CompiledRule struct {
	domain.Rule
	Predicate Predicate
}

// Registry: каталог правил. Итерация идет в порядке регистрации,
// он же порядок вычисления. Priority на порядок не влияет: срабатывают все правила,
// а их эффекты сливаются.
type Registry struct {
	mu    sync.RWMutex
	order []string
	rules map[string]*CompiledRule

	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rules:  make(map[string]*CompiledRule),
		logger: logger.Named("registry"),
	}
}

// Register добавляет правило. Ошибка здесь означает ошибку конфигурации,
// она должна останавливать старт движка.
func (r *Registry) Register(rule domain.Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	if !rule.Law.Valid() {
		return fmt.Errorf("%w: rule %s: unknown law %d", ErrInvalidRule, rule.ID, int(rule.Law))
	}
	if !rule.Action.Valid() {
		return fmt.Errorf("%w: rule %s: unknown action %q", ErrInvalidRule, rule.ID, rule.Action)
	}

	pred, err := Compile(rule.Condition)
	if err != nil {
		return fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	rule.Metadata = cloneMap(rule.Metadata)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRuleID, rule.ID)
	}
	r.rules[rule.ID] = &CompiledRule{Rule: rule, Predicate: pred}
	r.order = append(r.order, rule.ID)
	return nil
}

// RegisterAll регистрирует правила по порядку и останавливается на первой ошибке.
func (r *Registry) RegisterAll(rules []domain.Rule) error {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// Load выполняет "холодную загрузку" дополнительных правил из хранилища при старте.
func (r *Registry) Load(ctx context.Context, repo RuleRepository) error {
	rules, err := repo.GetAllRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if err := r.RegisterAll(rules); err != nil {
		return err
	}
	r.logger.Info("rules loaded from repository", zap.Int("count", len(rules)))
	return nil
}

func (r *Registry) Get(id string) (CompiledRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cr, ok := r.rules[id]
	if !ok {
		return CompiledRule{}, false
	}
	return *cr, true
}

// All возвращает снимок каталога в порядке регистрации.
func (r *Registry) All() []CompiledRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CompiledRule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.rules[id])
	}
	return out
}

// Enabled: то же, что All, но только включенные правила.
func (r *Registry) Enabled() []CompiledRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CompiledRule, 0, len(r.order))
	for _, id := range r.order {
		if cr := r.rules[id]; cr.Enabled {
			out = append(out, *cr)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) EnabledLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, cr := range r.rules {
		if cr.Enabled {
			n++
		}
	}
	return n
}

// SetEnabled: единственная мутация правила после регистрации (действие оператора).
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cr, ok := r.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if cr.Enabled == enabled {
		return nil
	}
	// Копия вместо мутации на месте: выданные ранее снимки не меняются.
	next := *cr
	next.Enabled = enabled
	r.rules[id] = &next

	r.logger.Info("rule toggled", zap.String("rule_id", id), zap.Bool("enabled", enabled))
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
