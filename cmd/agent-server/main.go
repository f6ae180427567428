// cmd/agent-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shopping-agent/internal/agent"
	"shopping-agent/internal/common/config"
	"shopping-agent/internal/common/database"
	"shopping-agent/internal/common/logger"
	"shopping-agent/internal/common/observability"
	"shopping-agent/internal/dialogues"
	"shopping-agent/internal/domain"
	"shopping-agent/internal/providers"
	"shopping-agent/internal/runtime/executor"
	"shopping-agent/internal/runtime/intent"
	"shopping-agent/internal/runtime/memory"
	"shopping-agent/internal/runtime/tools"
	"shopping-agent/internal/server"
	"shopping-agent/pkg/registry"

	comparefull "shopping-agent/internal/workers/price/compare-full"
	recogenerate "shopping-agent/internal/workers/reco/generate"
)

const serviceName = "shopping-agent"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting shopping agent...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(serviceName)
	defer obs.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backends []database.Pinger

	// --- Listing providers ---
	var sources []providers.Source
	if cfg.Providers.Shopping.Enabled {
		sources = append(sources, providers.NewShoppingSource(providers.ShoppingConfig{
			BaseURL:    cfg.Providers.Shopping.BaseURL,
			APIKey:     cfg.Providers.Shopping.APIKey,
			Engine:     cfg.Providers.Shopping.Engine,
			Timeout:    config.GetDuration(cfg.Providers.Shopping.Timeout),
			MaxResults: cfg.Providers.Shopping.MaxResults,
		}))
		zapLog.Info("Shopping API provider enabled", zap.String("baseUrl", cfg.Providers.Shopping.BaseURL))
	}

	if cfg.Providers.Catalog.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		backends = append(backends, esClient)
		sources = append(sources, providers.NewCatalogSource(esClient.Client, cfg.Providers.Catalog.Index, cfg.Providers.Catalog.MaxResults))
		zapLog.Info("Elasticsearch catalog provider enabled", zap.String("index", cfg.Providers.Catalog.Index))
	}
	source := providers.NewFanoutSource(&providersLoggerAdapter{log}, sources...)

	// --- Short-term memory ---
	var mem memory.Store
	memoryTTL := config.GetDuration(cfg.Memory.TTL)
	switch cfg.Memory.Backend {
	case config.MemoryBackendRedis:
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		backends = append(backends, redis)
		mem = memory.NewRedisStore(redis.Client, memoryTTL)
		zapLog.Info("Redis memory backend connected")
	default:
		mem = memory.NewInMemoryStore(memoryTTL)
	}

	// --- Dialogue history ---
	var history agent.HistoryStore
	if cfg.Dialogues.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		backends = append(backends, pg)

		store := dialogues.NewStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("dialogue schema setup failed", zap.Error(err))
		}
		history = store
		zapLog.Info("PostgreSQL dialogue store connected")
	}

	// --- Tools ---
	catalog, err := registry.LoadOrDefault(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("tool catalog load failed", zap.Error(err), zap.String("path", cfg.Registry.Path))
	}
	profiles := domain.Default()

	compareCfg := comparefull.LoadConfig()
	compareCfg.MinResults = cfg.Agent.MinResults
	compareCfg.DefaultRegion = cfg.Agent.DefaultRegion
	compareCfg.DefaultCurrency = cfg.Agent.DefaultCurrency
	compareHandler := comparefull.NewHandler(compareCfg, profiles, source, obs, &compareFullLoggerAdapter{log})

	recoCfg := recogenerate.LoadConfig()
	recoCfg.GenAIBaseURL = cfg.APIs.GenAI.BaseURL
	recoCfg.APIKey = cfg.APIs.GenAI.APIKey
	recoCfg.Timeout = config.GetDuration(cfg.APIs.GenAI.Timeout)
	recoCfg.MaxRetries = cfg.APIs.GenAI.MaxRetries
	recoCfg.DefaultCurrency = cfg.Agent.DefaultCurrency
	recoHandler := recogenerate.NewHandler(recoCfg, recogenerate.NewGenAIClient(recoCfg), &recoGenerateLoggerAdapter{log})

	toolRegistry := tools.NewRegistry()
	for id, fn := range map[string]tools.Func{
		comparefull.TaskType:  compareHandler.Tool(),
		recogenerate.TaskType: recoHandler.Tool(),
	} {
		toolCfg := config.GetToolConfig(cfg, id)
		if !toolCfg.Enabled {
			zapLog.Warn("tool disabled", zap.String("tool", id))
			continue
		}
		if err := toolRegistry.RegisterFromCatalog(catalog, id, tools.WithTimeout(fn, config.GetDuration(toolCfg.Timeout))); err != nil {
			zapLog.Fatal("tool registration failed", zap.Error(err), zap.String("tool", id))
		}
		zapLog.Info("Tool registered", zap.String("tool", id), zap.Int("timeoutMs", toolCfg.Timeout))
	}

	// --- Agent ---
	exec := executor.New(toolRegistry, obs, &executorLoggerAdapter{log})
	decider := intent.NewDecider(profiles, intent.Config{
		TrialTimeout:    config.GetDuration(cfg.Agent.TrialTimeout),
		TrialMaxResults: cfg.Agent.TrialMaxResults,
	}, &intentLoggerAdapter{log})
	svc := agent.NewService(agent.Config{HistoryLimit: cfg.Dialogues.HistoryLimit}, decider, exec, mem, history, obs, &agentLoggerAdapter{log})

	// --- HTTP ---
	serverLog := &serverLoggerAdapter{log}
	handlers := server.NewHandlers(svc, compareHandler, backends, serverLog)
	srv := server.New(server.Config{
		Address:         cfg.Server.Address,
		ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
	}, server.NewRouter(handlers, serviceName, serverLog), serverLog)

	zapLog.Info("Shopping agent started",
		zap.String("address", cfg.Server.Address),
		zap.Strings("tools", toolRegistry.Names()),
		zap.Int("backends", len(backends)),
	)

	if err := srv.Run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Shutdown complete")
}

// ==========================
// Logger adapters
// ==========================

type providersLoggerAdapter struct {
	logger.Logger
}

func (a *providersLoggerAdapter) With(fields map[string]interface{}) providers.Logger {
	return &providersLoggerAdapter{a.Logger.With(fields)}
}

type compareFullLoggerAdapter struct {
	logger.Logger
}

func (a *compareFullLoggerAdapter) With(fields map[string]interface{}) comparefull.Logger {
	return &compareFullLoggerAdapter{a.Logger.With(fields)}
}

type recoGenerateLoggerAdapter struct {
	logger.Logger
}

func (a *recoGenerateLoggerAdapter) With(fields map[string]interface{}) recogenerate.Logger {
	return &recoGenerateLoggerAdapter{a.Logger.With(fields)}
}

type executorLoggerAdapter struct {
	logger.Logger
}

func (a *executorLoggerAdapter) With(fields map[string]interface{}) executor.Logger {
	return &executorLoggerAdapter{a.Logger.With(fields)}
}

type intentLoggerAdapter struct {
	logger.Logger
}

func (a *intentLoggerAdapter) With(fields map[string]interface{}) intent.Logger {
	return &intentLoggerAdapter{a.Logger.With(fields)}
}

type agentLoggerAdapter struct {
	logger.Logger
}

func (a *agentLoggerAdapter) With(fields map[string]interface{}) agent.Logger {
	return &agentLoggerAdapter{a.Logger.With(fields)}
}

type serverLoggerAdapter struct {
	logger.Logger
}

func (a *serverLoggerAdapter) With(fields map[string]interface{}) server.Logger {
	return &serverLoggerAdapter{a.Logger.With(fields)}
}
