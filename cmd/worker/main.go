package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/app"
	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/platform/blob"
	"github.com/nexusledger/nexusledger/internal/platform/kv"
	"github.com/nexusledger/nexusledger/internal/reports"
	"github.com/nexusledger/nexusledger/internal/tenants"
	"github.com/nexusledger/nexusledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	blobClient := blob.NewClient(cfg.BlobBaseURL, logger)

	store, cleanup, err := openStore(ctx, cfg, redisClient, blobClient)
	if err != nil {
		logger.Error("open storage backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	tenantsService := tenants.NewService(store, logger)

	accountsRepo := accounts.NewRepository(store)
	accountsService := accounts.NewService(accountsRepo)

	journalService := journal.NewService(store, accountsService)

	reportsCache := reports.NewCache(redisClient, cfg.CacheTTL)
	priorSource := reports.NewBlobPriorSource(blobClient, logger)
	reportsService := reports.NewService(journalService, accountsService, priorSource, reportsCache)
	journalService.WithInvalidator(reportsService, logger)

	integrityJob := jobs.NewGLIntegrityJob(journalService, tenantsService, logger)
	warmupJob := jobs.NewTrialBalanceWarmupJob(reportsService, tenantsService, logger)

	integrityTask, err := jobs.NewIntegrityScanTask(jobs.IntegrityScanPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewWarmupTask(jobs.WarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrityScan, Handler: integrityJob.Handle},
			{Type: jobs.TaskTrialBalanceWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *app.Config, redisClient *redis.Client, blobClient *blob.Client) (kv.Store, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case app.StorageMemory:
		return kv.NewMemoryStore(), noop, nil
	case app.StorageRedis:
		return kv.NewRedisStore(redisClient, cfg.RedisPrefix), noop, nil
	case app.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, noop, err
		}
		store := kv.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	case app.StorageBlob:
		return blob.NewStore(blobClient), noop, nil
	default:
		return nil, noop, errors.New("main: unknown storage backend")
	}
}
