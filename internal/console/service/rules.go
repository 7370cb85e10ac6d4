package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"github.com/xela07ax/spaceai-safety-engine/internal/policy"
	"go.uber.org/zap"
)

// RuleToggler: часть движка, отвечающая за каталог правил.
type RuleToggler interface {
	Rules() []domain.Rule
	SetRuleEnabled(id string, enabled bool) error
}

// RuleStore: долговременное хранилище флага enabled (Postgres). Может отсутствовать.
type RuleStore interface {
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
}

type RuleService struct {
	engine RuleToggler
	store  RuleStore
	logger *zap.Logger
}

func NewRuleService(engine RuleToggler, store RuleStore, logger *zap.Logger) *RuleService {
	return &RuleService{
		engine: engine,
		store:  store,
		logger: logger.Named("rule-service"),
	}
}

func (s *RuleService) List() []domain.Rule {
	return s.engine.Rules()
}

// SetEnabled сначала меняет состояние в памяти движка (это и есть источник правды
// для проверок), затем сохраняет его в БД. Если БД отказала, память возвращается
// к прежнему значению: ошибка вызывающему значит, что правило не переключено.
func (s *RuleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	prev, known := s.enabled(id)
	if err := s.engine.SetRuleEnabled(id, enabled); err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}

	if err := s.store.SetRuleEnabled(ctx, id, enabled); err != nil {
		// Встроенных правил в БД нет: это нормально
		if errors.Is(err, policy.ErrRuleNotFound) {
			s.logger.Debug("rule is not persisted, toggle kept in memory only", zap.String("rule_id", id))
			return nil
		}
		if known {
			if rbErr := s.engine.SetRuleEnabled(id, prev); rbErr != nil {
				s.logger.Error("failed to roll back rule toggle",
					zap.String("rule_id", id), zap.Error(rbErr))
			}
		}
		return fmt.Errorf("persist rule toggle: %w", err)
	}
	return nil
}

func (s *RuleService) enabled(id string) (bool, bool) {
	for _, r := range s.engine.Rules() {
		if r.ID == id {
			return r.Enabled, true
		}
	}
	return false, false
}
