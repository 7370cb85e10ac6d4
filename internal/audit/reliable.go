package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

type ReliableConfig struct {
	Attempts    uint
	CallTimeout time.Duration
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

// ReliableStorage оборачивает Storage в ретраи и Circuit Breaker,
// чтобы деградация БД не превращалась в лавину запросов.
type ReliableStorage struct {
	next        Storage
	cb          *gobreaker.CircuitBreaker
	attempts    uint
	callTimeout time.Duration
}

func NewReliableStorage(next Storage, cfg ReliableConfig) *ReliableStorage {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-storage",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout, // через сколько CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})

	return &ReliableStorage{
		next:        next,
		cb:          cb,
		attempts:    cfg.Attempts,
		callTimeout: cfg.CallTimeout,
	}
}

func (s *ReliableStorage) WriteBatch(ctx context.Context, entries []Entry) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(s.attempts),
			retry.DelayType(retry.BackOffDelay),
		)
		return nil, r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
			return s.next.WriteBatch(tCtx, entries)
		})
	})
	if err != nil {
		return fmt.Errorf("audit storage: %w", err)
	}
	return nil
}

// State: состояние предохранителя (для метрик и health-check).
func (s *ReliableStorage) State() gobreaker.State {
	return s.cb.State()
}
