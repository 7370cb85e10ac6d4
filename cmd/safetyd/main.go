package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-safety-engine/internal/audit"
	"github.com/xela07ax/spaceai-safety-engine/internal/console/handler"
	"github.com/xela07ax/spaceai-safety-engine/internal/console/server"
	"github.com/xela07ax/spaceai-safety-engine/internal/console/service"
	"github.com/xela07ax/spaceai-safety-engine/internal/engine"
	"github.com/xela07ax/spaceai-safety-engine/internal/infra"
	"github.com/xela07ax/spaceai-safety-engine/internal/policy"
	"github.com/xela07ax/spaceai-safety-engine/internal/repository/postgres"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Контекст для фоновых горутин: SIGTERM отменяет слушателей
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Внешнее хранилище (опционально): сток аудита и каталог правил
	var (
		db        *sql.DB
		ruleStore service.RuleStore
		trailOpts []audit.TrailOption
		auditFS   *audit.AgentFS
	)
	if cfg.Database.URL != "" {
		db, err = postgres.Open(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.ConnMaxLifetime)
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer db.Close()

		storage := audit.NewReliableStorage(postgres.NewAuditRepo(db), audit.ReliableConfig{
			MaxFailures: cfg.Engine.CBMaxFailures,
			Interval:    cfg.Engine.CBInterval,
			Timeout:     cfg.Engine.CBTimeout,
		})
		auditFS = audit.NewAgentFS(storage, audit.AgentFSConfig{
			BufferSize:    cfg.Engine.AuditBufferSize,
			BatchSize:     cfg.Engine.AuditBatchSize,
			FlushInterval: cfg.Engine.AuditFlushInterval,
		}, logger)
		auditFS.Start()
		metrics.ObserveAuditSink(auditFS.Pending, auditFS.Dropped)
		trailOpts = append(trailOpts, audit.WithSink(auditFS))
		ruleStore = postgres.NewRuleRepo(db)
	}

	// 3. Каталог правил: встроенные -> файл -> БД. Любая ошибка останавливает старт.
	registry := policy.NewRegistry(logger)
	if err := registry.RegisterAll(policy.CoreRules()); err != nil {
		logger.Fatal("invalid core rules", zap.Error(err))
	}
	fileRules, err := policy.LoadRulesFile(cfg.Engine.RulesFile)
	if err != nil {
		logger.Fatal("failed to load rules file", zap.String("path", cfg.Engine.RulesFile), zap.Error(err))
	}
	if err := registry.RegisterAll(fileRules); err != nil {
		logger.Fatal("invalid rule in rules file", zap.Error(err))
	}
	if db != nil && cfg.Database.LoadRules {
		if err := registry.Load(appCtx, postgres.NewRuleRepo(db)); err != nil {
			logger.Fatal("failed to load rules from database", zap.Error(err))
		}
	}

	// 4. Ядро
	trail := audit.NewTrail(cfg.Engine.AuditCapacity, cfg.Engine.AuditRetain, trailOpts...)
	engineOpts := []engine.Option{
		engine.WithMetrics(metrics),
		engine.WithRecentWindow(cfg.Engine.RecentWindow),
	}

	// 5. Синхронизация аварийной остановки между инстансами (опционально)
	var stopSync *engine.StopSync
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		stopSync = engine.NewStopSync(rdb, logger)
		engineOpts = append(engineOpts, engine.WithBroadcaster(stopSync))
	}

	safety := engine.NewSafetyEngine(registry, trail, logger, engineOpts...)

	if stopSync != nil {
		sig, err := stopSync.Load(appCtx)
		if err != nil {
			// Fail-closed: состояние кластера неизвестно, стартуем остановленными
			logger.Error("failed to load emergency stop state, starting stopped", zap.Error(err))
			sig = engine.StopSignal{Active: true, OperatorID: "startup-sync"}
		}
		safety.ApplyRemoteStop(sig)
		go stopSync.StartListener(appCtx, safety.ApplyRemoteStop)
	}

	// 6. HTTP
	ruleService := service.NewRuleService(safety, ruleStore, logger)
	console := server.NewConsoleServer(
		logger,
		handler.NewSafetyHandler(safety, logger),
		handler.NewRuleHandler(ruleService, logger),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("safety engine API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 7. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("safety engine stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	// Досылаем поставленные в очередь сигналы остановки, пока Redis-клиент открыт
	safety.Close()
	// Аудит закрываем после HTTP, чтобы последние решения успели попасть в буфер
	if auditFS != nil {
		auditFS.Stop()
	}
	logger.Info("safety engine exited properly")
}
