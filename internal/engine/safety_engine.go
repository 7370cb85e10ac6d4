package engine

/*
Файл safety_engine.go: оркестратор движка безопасности (SafetyEngine).

Порядок проверки действия:
 1. Аварийная остановка (самое дешевое, короткое замыкание всего остального).
 2. Всегда запрещенные действия.
 3. Сканирование свободного текста description на опасные сигнатуры.
 4. Все включенные правила каталога в порядке регистрации.
 5. Агрегация в один вердикт, запись в аудит.

Вычисление синхронное и не делает I/O. Единственный побочный эффект: запись в Trail
(и неблокирующая передача в Sink). Внутренняя паника превращается в отказной вердикт.
*/

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xela07ax/spaceai-safety-engine/internal/audit"
	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"github.com/xela07ax/spaceai-safety-engine/internal/policy"
	"github.com/xela07ax/spaceai-safety-engine/internal/risk"
	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrOperatorRequired: снятие аварийной остановки без идентификатора оператора.
var ErrOperatorRequired = errors.New("engine: operator id is required")

const (
	ActionMissionObjective = "mission_objective"
	ActionMissionExecution = "mission_execution"
	ActionMission          = "mission"
	ActionEmergencyStop    = "emergency_stop"
	ActionEmergencyResume  = "emergency_stop_deactivated"

	// OperatorApprovedAttr: флаг явного подтверждения оператором в контексте действия.
	OperatorApprovedAttr = "operator_approved"

	DefaultRecentWindow = time.Hour
	broadcastTimeout    = 3 * time.Second
	broadcastAttempts   = 3
	broadcastQueueSize  = 64

	sourceLocal       = "local"
	sourceRemote      = "remote"
	stateSyncOperator = "redis-sync"
)

type SafetyEngine struct {
	registry   *policy.Registry
	scanner    *risk.Scanner
	prohibited *risk.ProhibitedSet
	killSwitch *KillSwitch
	trail      *audit.Trail
	metrics    *Metrics
	logger     *zap.Logger

	broadcaster  StopBroadcaster
	recentWindow time.Duration

	// stopMu упорядочивает смены состояния остановки: номер Seq, постановка
	// в очередь рассылки и фильтр удаленных сигналов идут в одном порядке.
	stopMu         sync.Mutex
	instanceID     string
	stopSeq        uint64
	remoteSeq      map[string]uint64
	broadcastQueue chan StopSignal
	broadcastDone  chan struct{}
	closed         bool

	// Почти каждое правило ссылается на атрибуты, которых нет в конкретном контексте,
	// поэтому такие сообщения сэмплируются.
	missingLog rate.Sometimes

	// evalHook вызывается внутри вычисления; используется тестами для имитации сбоя.
	evalHook func(actionType string)
}

type Option func(*SafetyEngine)

func WithMetrics(m *Metrics) Option {
	return func(e *SafetyEngine) { e.metrics = m }
}

func WithBroadcaster(b StopBroadcaster) Option {
	return func(e *SafetyEngine) { e.broadcaster = b }
}

// WithInstanceID задает идентификатор инстанса в рассылаемых сигналах (по умолчанию uuid).
func WithInstanceID(id string) Option {
	return func(e *SafetyEngine) {
		if id != "" {
			e.instanceID = id
		}
	}
}

func WithRecentWindow(d time.Duration) Option {
	return func(e *SafetyEngine) {
		if d > 0 {
			e.recentWindow = d
		}
	}
}

func WithScanner(s *risk.Scanner) Option {
	return func(e *SafetyEngine) { e.scanner = s }
}

func WithProhibitedSet(p *risk.ProhibitedSet) Option {
	return func(e *SafetyEngine) { e.prohibited = p }
}

// NewSafetyEngine собирает движок. Аварийная остановка при создании всегда выключена.
func NewSafetyEngine(registry *policy.Registry, trail *audit.Trail, logger *zap.Logger, opts ...Option) *SafetyEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &SafetyEngine{
		registry:     registry,
		trail:        trail,
		killSwitch:   NewKillSwitch(),
		logger:       logger.Named("engine"),
		recentWindow: DefaultRecentWindow,
		missingLog:   rate.Sometimes{First: 10, Interval: 10 * time.Second},
		instanceID:   uuid.NewString(),
		remoteSeq:    make(map[string]uint64),
	}
	for _, o := range opts {
		o(e)
	}
	if e.scanner == nil {
		e.scanner = risk.NewScanner()
	}
	if e.prohibited == nil {
		e.prohibited = risk.NewProhibitedSet()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.broadcaster != nil {
		e.broadcastQueue = make(chan StopSignal, broadcastQueueSize)
		e.broadcastDone = make(chan struct{})
		go e.runBroadcaster()
	}

	e.logger.Info("safety engine initialized",
		zap.Int("rules_count", registry.Len()),
		zap.Int("prohibited_actions", e.prohibited.Len()),
		zap.Int("audit_capacity", trail.Capacity()),
		zap.String("instance_id", e.instanceID),
	)
	return e
}

// ValidateAction проверяет одно действие. Никогда не возвращает ошибку:
// вызывающий всегда получает вердикт.
func (e *SafetyEngine) ValidateAction(actionType string, ctx map[string]any) domain.SafetyCheck {
	start := time.Now()
	var verdict domain.SafetyCheck

	e.killSwitch.Guard(func(stopped bool) {
		snapshot := e.normalizeContext(ctx)
		if stopped {
			verdict = emergencyStopVerdict()
			e.metrics.Violations.WithLabelValues("emergency_stop").Inc()
		} else {
			verdict = e.evaluate(actionType, snapshot)
		}
		e.record(actionType, snapshot, verdict, stopped)
	})

	e.observe("action", start, verdict)
	return verdict
}

// ValidateMission проверяет каждую цель миссии как "mission_objective" и сворачивает
// результаты через AggregateMission.
func (e *SafetyEngine) ValidateMission(m domain.Mission) domain.SafetyCheck {
	start := time.Now()
	e.logger.Info("validating mission safety", zap.String("mission_id", m.ID))

	var verdict domain.SafetyCheck
	e.killSwitch.Guard(func(stopped bool) {
		summary := map[string]any{
			"mission_id":      m.ID,
			"objective_count": len(m.Objectives),
		}
		if stopped {
			verdict = emergencyStopVerdict()
			e.metrics.Violations.WithLabelValues("emergency_stop").Inc()
			e.record(ActionMission, summary, verdict, true)
			return
		}

		checks := make([]domain.SafetyCheck, 0, len(m.Objectives))
		for i, obj := range m.Objectives {
			snapshot := e.normalizeContext(missionObjectiveContext(m, i, obj))
			c := e.evaluate(ActionMissionObjective, snapshot)
			e.record(ActionMissionObjective, snapshot, c, false)
			checks = append(checks, c)
		}

		verdict = AggregateMission(checks)
		e.record(ActionMission, summary, verdict, false)
	})

	e.observe("mission", start, verdict)
	return verdict
}

// ValidateMissionExecution: отдельная контрольная точка прямо перед автономным исполнением.
// Миссия, одобренная при создании, может быть заблокирована здесь, если состояние изменилось.
func (e *SafetyEngine) ValidateMissionExecution(m domain.MissionExecution) domain.SafetyCheck {
	ctx := map[string]any{
		"mission_id":  m.ID,
		"status":      m.Status,
		"operator_id": m.AssignedOperator,
	}
	if m.Priority != nil {
		ctx["priority"] = m.Priority
	}
	return e.ValidateAction(ActionMissionExecution, ctx)
}

// EmergencyStop переводит движок в EmergencyStopped (идемпотентно) и всегда пишет аудит.
func (e *SafetyEngine) EmergencyStop(operatorID string) {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	e.applyStop(true, operatorID, sourceLocal)
	e.enqueueBroadcast(true, operatorID)
}

// DeactivateEmergencyStop возвращает движок в Normal. Право оператора на это
// проверяет вызывающий слой, здесь требуется только идентификатор для аудита.
func (e *SafetyEngine) DeactivateEmergencyStop(operatorID string) error {
	if strings.TrimSpace(operatorID) == "" {
		return ErrOperatorRequired
	}

	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	e.applyStop(false, operatorID, sourceLocal)
	e.enqueueBroadcast(false, operatorID)
	return nil
}

// ApplyRemoteStop применяет сигнал другого инстанса без повторной рассылки.
// Собственное эхо и сигналы с Seq не новее уже примененного от того же Origin
// отбрасываются. Аудит пишется только при реальной смене состояния.
func (e *SafetyEngine) ApplyRemoteStop(sig StopSignal) {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	if sig.Origin != "" {
		if sig.Origin == e.instanceID {
			return
		}
		if sig.Seq <= e.remoteSeq[sig.Origin] {
			e.logger.Warn("stale emergency stop signal dropped",
				zap.String("origin", sig.Origin),
				zap.Uint64("seq", sig.Seq),
				zap.Uint64("applied_seq", e.remoteSeq[sig.Origin]),
			)
			return
		}
		e.remoteSeq[sig.Origin] = sig.Seq
	}
	e.applyStop(sig.Active, sig.OperatorID, sourceRemote)
}

// applyStop вызывается под stopMu. Локальная команда пишет аудит всегда,
// удаленная только если состояние действительно изменилось.
func (e *SafetyEngine) applyStop(active bool, operatorID, source string) bool {
	var changed bool
	if active {
		changed = e.killSwitch.Activate(operatorID)
	} else {
		changed = e.killSwitch.Deactivate(operatorID)
	}
	if !changed && source == sourceRemote {
		return false
	}

	ctx := map[string]any{
		"operator_id": operatorID,
		"source":      source,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
	}

	if active {
		e.logger.Error("EMERGENCY STOP ACTIVATED - all operations suspended",
			zap.String("operator_id", operatorID),
			zap.String("source", source),
			zap.Bool("changed", changed),
		)
		e.record(ActionEmergencyStop, ctx, domain.SafetyCheck{
			Approved:        false,
			ViolatedLaws:    []domain.Law{},
			ViolatedRules:   []string{RuleEmergencyStop},
			SafetyLevel:     domain.LevelProhibited,
			Reason:          "Emergency stop activated by operator",
			Recommendations: []string{"All operations suspended for safety"},
			ApprovalLevel:   domain.DefaultApprovalLevel,
		}, true)
		e.metrics.EmergencyStopActive.Set(1)
		return changed
	}

	e.logger.Info("emergency stop deactivated",
		zap.String("operator_id", operatorID),
		zap.String("source", source),
		zap.Bool("changed", changed),
	)
	e.record(ActionEmergencyResume, ctx, domain.SafetyCheck{
		Approved:        true,
		ViolatedLaws:    []domain.Law{},
		ViolatedRules:   []string{},
		SafetyLevel:     domain.LevelSafe,
		Reason:          fmt.Sprintf("Emergency stop deactivated by operator %s", operatorID),
		Recommendations: []string{},
		ApprovalLevel:   domain.DefaultApprovalLevel,
	}, false)
	e.metrics.EmergencyStopActive.Set(0)
	return changed
}

// enqueueBroadcast вызывается под stopMu: порядок в очереди совпадает с порядком команд.
// Полная очередь блокирует следующую команду, сигнал не теряется.
func (e *SafetyEngine) enqueueBroadcast(active bool, operatorID string) {
	if e.broadcastQueue == nil {
		return
	}
	if e.closed {
		e.logger.Warn("engine closed, emergency stop state not broadcast",
			zap.Bool("active", active), zap.String("operator_id", operatorID))
		return
	}
	e.stopSeq++
	e.broadcastQueue <- StopSignal{
		Origin:     e.instanceID,
		Seq:        e.stopSeq,
		Active:     active,
		OperatorID: operatorID,
	}
}

// runBroadcaster: единственный отправитель, Redis здесь внешний коллаборатор
// и не задерживает вызывающего EmergencyStop.
func (e *SafetyEngine) runBroadcaster() {
	defer close(e.broadcastDone)
	for sig := range e.broadcastQueue {
		r := retry.New(
			retry.Attempts(broadcastAttempts),
			retry.DelayType(retry.BackOffDelay),
		)
		err := r.Do(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
			defer cancel()
			return e.broadcaster.Publish(ctx, sig)
		})
		if err != nil {
			e.logger.Error("failed to broadcast emergency stop state",
				zap.Bool("active", sig.Active),
				zap.Uint64("seq", sig.Seq),
				zap.Error(err),
			)
		}
	}
}

// Close дожидается отправки уже поставленных в очередь сигналов.
// После Close смены состояния применяются локально, но не рассылаются.
func (e *SafetyEngine) Close() {
	e.stopMu.Lock()
	if e.broadcastQueue == nil || e.closed {
		e.stopMu.Unlock()
		return
	}
	e.closed = true
	close(e.broadcastQueue)
	e.stopMu.Unlock()

	<-e.broadcastDone
}

// InstanceID: идентификатор этого инстанса в сигналах остановки.
func (e *SafetyEngine) InstanceID() string {
	return e.instanceID
}

func (e *SafetyEngine) EmergencyStopActive() bool {
	return e.killSwitch.Active()
}

func (e *SafetyEngine) Status() domain.Status {
	return domain.Status{
		EmergencyStopActive:   e.killSwitch.Active(),
		RuleCount:             e.registry.Len(),
		EnabledRuleCount:      e.registry.EnabledLen(),
		ProhibitedActionCount: e.prohibited.Len(),
		RecentCheckCount:      e.trail.RecentCount(e.recentWindow),
	}
}

// RecentCount: число записей аудита за окно (для экспортера телеметрии).
func (e *SafetyEngine) RecentCount(window time.Duration) int {
	return e.trail.RecentCount(window)
}

// Rules: каталог правил только для чтения.
func (e *SafetyEngine) Rules() []domain.Rule {
	all := e.registry.All()
	out := make([]domain.Rule, 0, len(all))
	for _, cr := range all {
		out = append(out, cr.Rule)
	}
	return out
}

// SetRuleEnabled: административное включение/выключение правила.
func (e *SafetyEngine) SetRuleEnabled(id string, enabled bool) error {
	return e.registry.SetEnabled(id, enabled)
}

// evaluate: чистое вычисление вердикта без учета аварийной остановки.
func (e *SafetyEngine) evaluate(actionType string, snapshot map[string]any) (verdict domain.SafetyCheck) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("safety evaluation fault",
				zap.String("action_type", actionType), zap.Any("panic", r))
			e.metrics.Violations.WithLabelValues("fault").Inc()
			verdict = faultVerdict(r)
		}
	}()

	if e.evalHook != nil {
		e.evalHook(actionType)
	}

	b := newVerdictBuilder()

	// 1. Всегда запрещенные действия
	if e.prohibited.Contains(actionType) {
		b.violate(domain.LawFirst, RuleProhibitedAction, domain.LevelProhibited)
		e.metrics.Violations.WithLabelValues("prohibited").Inc()
	}

	// 2. Опасные сигнатуры в описании
	if desc, ok := snapshot["description"].(string); ok {
		for _, label := range e.scanner.Scan(desc) {
			b.violate(domain.LawFirst, rulePatternPrefix+label, domain.LevelDangerous)
			e.metrics.Violations.WithLabelValues("pattern").Inc()
		}
	}

	// 3. Правила каталога. action_type доступен условиям как обычный атрибут.
	attrs := make(map[string]any, len(snapshot)+1)
	for k, v := range snapshot {
		attrs[k] = v
	}
	attrs["action_type"] = actionType

	for _, rule := range e.registry.Enabled() {
		matched, missing := rule.Predicate.Match(attrs)
		if len(missing) > 0 {
			e.missingLog.Do(func() {
				e.logger.Debug("rule references missing context attributes",
					zap.String("rule_id", rule.ID), zap.Strings("missing", missing))
			})
		}
		if !matched {
			continue
		}
		if rule.Action == domain.ActionBlock {
			e.metrics.Violations.WithLabelValues("rule").Inc()
		}
		if rule.Action == domain.ActionAllowWithLogging {
			e.logger.Info("action allowed with logging",
				zap.String("rule_id", rule.ID), zap.String("action_type", actionType))
		}
		b.apply(rule.Rule)
	}

	operatorApproved, _ := snapshot[OperatorApprovedAttr].(bool)
	return b.build(operatorApproved)
}

func (e *SafetyEngine) record(actionType string, ctx map[string]any, verdict domain.SafetyCheck, stopped bool) {
	e.trail.Append(audit.Entry{
		ActionType:          actionType,
		Context:             ctx,
		Verdict:             verdict,
		EmergencyStopActive: stopped,
	})
	e.metrics.AuditEntries.Set(float64(e.trail.Len()))

	if !verdict.Approved {
		laws := make([]string, 0, len(verdict.ViolatedLaws))
		for _, l := range verdict.ViolatedLaws {
			laws = append(laws, l.String())
		}
		e.logger.Warn("safety check failed",
			zap.String("action_type", actionType),
			zap.Strings("violated_laws", laws),
			zap.String("safety_level", string(verdict.SafetyLevel)),
			zap.String("reason", verdict.Reason),
		)
		return
	}
	e.logger.Debug("safety check passed", zap.String("action_type", actionType))
}

func (e *SafetyEngine) observe(kind string, start time.Time, v domain.SafetyCheck) {
	e.metrics.CheckDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	e.metrics.ChecksTotal.WithLabelValues(kind, string(v.SafetyLevel), fmt.Sprint(v.Approved)).Inc()
}

// normalizeContext копирует контекст, оставляя только скалярные значения.
func (e *SafetyEngine) normalizeContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if v == nil {
			continue
		}
		if !policy.IsScalar(v) {
			e.missingLog.Do(func() {
				e.logger.Debug("non-scalar context attribute dropped", zap.String("attr", k))
			})
			continue
		}
		out[k] = v
	}
	return out
}

// missionObjectiveContext: поля миссии, затем mission_id/priority, затем поля цели
// (цель конкретнее и перекрывает общие поля).
func missionObjectiveContext(m domain.Mission, idx int, objective map[string]any) map[string]any {
	ctx := make(map[string]any, len(m.Fields)+len(objective)+3)
	for k, v := range m.Fields {
		ctx[k] = v
	}
	ctx["mission_id"] = m.ID
	if m.Priority != nil {
		ctx["priority"] = m.Priority
	}
	for k, v := range objective {
		ctx[k] = v
	}
	ctx["objective_index"] = idx
	return ctx
}
