package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-safety-engine/internal/infra"
	"go.uber.org/zap"
)

// StopSignal: смена состояния аварийной остановки, как она ходит между инстансами.
// Origin и Seq задает инстанс-источник: Seq строго растет в порядке применения
// команд на нем. Сигнал без Origin (ручная публикация, старый формат) не версионирован.
type StopSignal struct {
	Origin     string
	Seq        uint64
	Active     bool
	OperatorID string
}

// StopBroadcaster рассылает смену состояния аварийной остановки другим инстансам.
// Движок вызывает Publish из одной горутины в порядке команд.
type StopBroadcaster interface {
	Publish(ctx context.Context, sig StopSignal) error
}

// StopSync синхронизирует аварийную остановку между инстансами через Redis:
// ключ хранит последний сигнал (для старта и переподключения), канал: события.
type StopSync struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewStopSync(rdb *redis.Client, logger *zap.Logger) *StopSync {
	return &StopSync{
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "estop-sync")),
	}
}

// Load читает сохраненное состояние. Отсутствие ключа: Normal.
func (s *StopSync) Load(ctx context.Context) (StopSignal, error) {
	val, err := s.rdb.Get(ctx, infra.RedisKeyEmergencyStop).Result()
	if errors.Is(err, redis.Nil) {
		return StopSignal{OperatorID: stateSyncOperator}, nil
	}
	if err != nil {
		return StopSignal{}, fmt.Errorf("load emergency stop state: %w", err)
	}

	// Ключ в старом формате: "1" / "0".
	switch val {
	case "1":
		return StopSignal{Active: true, OperatorID: stateSyncOperator}, nil
	case "0":
		return StopSignal{OperatorID: stateSyncOperator}, nil
	}
	sig, ok := ParseStopSignal(val)
	if !ok {
		return StopSignal{}, fmt.Errorf("load emergency stop state: malformed value %q", val)
	}
	return sig, nil
}

// Publish атомарно обновляет ключ и публикует сигнал, ключ и канал не расходятся.
func (s *StopSync) Publish(ctx context.Context, sig StopSignal) error {
	payload := FormatStopSignal(sig)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, infra.RedisKeyEmergencyStop, payload, 0)
	pipe.Publish(ctx, infra.RedisChanEmergencyStop, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish emergency stop: %w", err)
	}
	return nil
}

// StartListener подписывается на сигналы и применяет их к локальному движку.
// При каждом переподключении состояние перечитывается из ключа.
func (s *StopSync) StartListener(ctx context.Context, apply func(sig StopSignal)) {
	s.logger.Info("emergency stop listener started")
	ListenStateResilient(ctx, s.rdb, s.logger, infra.RedisChanEmergencyStop,
		func() error {
			sig, err := s.Load(ctx)
			if err != nil {
				return err
			}
			apply(sig)
			return nil
		},
		func(payload string) {
			sig, ok := ParseStopSignal(payload)
			if !ok {
				s.logger.Error("invalid signal format", zap.String("payload", payload))
				return
			}
			s.logger.Info("received emergency stop signal",
				zap.String("origin", sig.Origin),
				zap.Uint64("seq", sig.Seq),
				zap.String("operator_id", sig.OperatorID),
				zap.Bool("active", sig.Active),
			)
			apply(sig)
		},
	)
	s.logger.Info("emergency stop listener stopped")
}
