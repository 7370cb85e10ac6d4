package audit

/*
Файл agentfs.go реализует асинхронный сток журнала аудита во внешнее хранилище.

Движок безопасности сам ничего не хранит долговременно: Trail отдает каждую запись
в Sink, а AgentFS складывает их в буферизированный канал и пачками пишет в Storage
(Postgres). Запись в канал неблокирующая, так что задержки БД не влияют на проверку.

- Load Shedding: при переполнении буфера запись отбрасывается и считается в Dropped().
- Batching: сброс по таймеру или при достижении размера пачки.
- Drain Pattern: Stop() закрывает канал, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются записи.
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []Entry) error
}

type AgentFSConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

type AgentFS struct {
	ch     chan Entry
	repo   Storage
	logger *zap.Logger
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	// closeMu защищает канал от отправки после close.
	closeMu sync.RWMutex
	closed  bool

	dropped atomic.Int64
}

func NewAgentFS(repo Storage, cfg AgentFSConfig, logger *zap.Logger) *AgentFS {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentFS{
		ch:            make(chan Entry, cfg.BufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "agentfs")),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}
}

func (fs *AgentFS) Start() {
	fs.wg.Add(1)
	go fs.worker()
}

// Stop запирает вход и ждет, пока воркер всё допишет.
func (fs *AgentFS) Stop() {
	fs.closeMu.Lock()
	if fs.closed {
		fs.closeMu.Unlock()
		return
	}
	fs.closed = true
	fs.logger.Info("stopping auditor: closing channel and flushing buffer...")
	close(fs.ch)
	fs.closeMu.Unlock()

	fs.wg.Wait()
	fs.logger.Info("auditor stopped gracefully")
}

// Log реализует Sink. Никогда не блокирует.
func (fs *AgentFS) Log(entry Entry) {
	fs.closeMu.RLock()
	defer fs.closeMu.RUnlock()

	if fs.closed {
		fs.dropped.Add(1)
		fs.logger.Warn("audit entry dropped: auditor is stopping", zap.String("id", entry.ID))
		return
	}

	select {
	case fs.ch <- entry:
	default:
		fs.dropped.Add(1)
		fs.logger.Error("audit_buffer_overflow",
			zap.String("id", entry.ID),
			zap.String("action_type", entry.ActionType),
		)
	}
}

// Pending: сколько записей ждут сброса (заполненность буфера).
func (fs *AgentFS) Pending() int {
	return len(fs.ch)
}

func (fs *AgentFS) Dropped() int64 {
	return fs.dropped.Load()
}

func (fs *AgentFS) worker() {
	defer fs.wg.Done()

	batch := make([]Entry, 0, fs.batchSize)
	ticker := time.NewTicker(fs.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть уже отменен
		if err := fs.repo.WriteBatch(context.Background(), batch); err != nil {
			fs.logger.Error("audit flush failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = make([]Entry, 0, fs.batchSize)
	}

	for {
		select {
		case entry, ok := <-fs.ch:
			if !ok {
				flush() // финальный сброс
				fs.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= fs.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
