package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nexusledger/nexusledger/internal/accounts"
	"github.com/nexusledger/nexusledger/internal/app"
	"github.com/nexusledger/nexusledger/internal/journal"
	"github.com/nexusledger/nexusledger/internal/platform/blob"
	"github.com/nexusledger/nexusledger/internal/platform/kv"
	"github.com/nexusledger/nexusledger/internal/reports"
	"github.com/nexusledger/nexusledger/internal/suggest"
	"github.com/nexusledger/nexusledger/internal/tenants"
	"github.com/nexusledger/nexusledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	blobClient := blob.NewClient(cfg.BlobBaseURL, logger)

	store, cleanup, err := openStore(ctx, cfg, logger, redisClient, blobClient)
	if err != nil {
		logger.Error("open storage backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	tenantsService := tenants.NewService(store, logger)
	tenantsHandler := tenants.NewHandler(logger, tenantsService)

	accountsRepo := accounts.NewRepository(store)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalService := journal.NewService(store, accountsService)
	suggestClient := suggest.NewClient(cfg.SuggestBaseURL, cfg.SuggestAPIKey, logger)
	journalHandler := journal.NewHandler(logger, journalService).WithSuggester(suggestClient)

	reportsCache := reports.NewCache(redisClient, cfg.CacheTTL)
	priorSource := reports.NewBlobPriorSource(blobClient, logger)
	reportsService := reports.NewService(journalService, accountsService, priorSource, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)
	journalService.WithInvalidator(reportsService, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Directory:       tenantsService,
		Resolver:        tenants.HeaderResolver{},
		AccountsHandler: accountsHandler,
		JournalHandler:  journalHandler,
		ReportsHandler:  reportsHandler,
		TenantsHandler:  tenantsHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}

// openStore selects the persistence backend from configuration. The returned
// cleanup closes backend resources and is safe to call once.
func openStore(ctx context.Context, cfg *app.Config, logger *slog.Logger, redisClient *redis.Client, blobClient *blob.Client) (kv.Store, func(), error) {
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
		logger.Info("using blob gateway storage", slog.String("base_url", cfg.BlobBaseURL))
		return blob.NewStore(blobClient), noop, nil
	default:
		return nil, noop, errors.New("main: unknown storage backend")
	}
}
