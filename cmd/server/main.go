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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/vault-valuation-service/internal/api"
	"github.com/trogers1052/vault-valuation-service/internal/config"
	"github.com/trogers1052/vault-valuation-service/internal/database"
	"github.com/trogers1052/vault-valuation-service/internal/fees"
	"github.com/trogers1052/vault-valuation-service/internal/instrumentation"
	"github.com/trogers1052/vault-valuation-service/internal/kafka"
	"github.com/trogers1052/vault-valuation-service/internal/lock"
	"github.com/trogers1052/vault-valuation-service/internal/oracle"
	"github.com/trogers1052/vault-valuation-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		return err
	}
	logger.Info("database ready", "host", cfg.Database.Host, "name", cfg.Database.DBName)

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)

	priceOracle := oracle.NewClient(oracle.Config{
		BaseURL:    cfg.Oracle.BaseURL,
		APIKey:     cfg.Oracle.APIKey,
		BatchSize:  cfg.Oracle.BatchSize,
		MaxRetries: cfg.Oracle.MaxRetries,
		BaseDelay:  cfg.Oracle.BaseDelay,
		Timeout:    cfg.Oracle.Timeout,
	}, logger, metrics)

	engine, err := fees.NewEngine(cfg.Fees.Split())
	if err != nil {
		return err
	}

	navService := service.NewNavSeriesService(db, db, logger)
	accrualService := service.NewFeeAccrualService(service.FeeAccrualDeps{
		Vaults:          db,
		Chain:           db,
		Oracle:          priceOracle,
		Engine:          engine,
		Schedule:        cfg.Fees.Schedule(),
		ReserveAssetKey: cfg.ReserveAssetKey,
		Observer:        metrics,
	}, logger)

	batchLock, closeLock, err := newBatchLock(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeLock()

	batchDeps := service.BatchDeps{
		Vaults:     db,
		Accruals:   accrualService,
		Snapshots:  db,
		Lock:       batchLock,
		VaultDelay: cfg.Batch.VaultDelay,
		Observer:   metrics,
	}
	if cfg.Redis.URL != "" {
		batchDeps.LockRefresh = cfg.Redis.LockRefresh
	}

	errCh := make(chan error, 2)

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.FeeTopic)
		defer producer.Close()
		batchDeps.Publisher = producer

		consumer := kafka.NewTickConsumer(cfg.Kafka.Brokers, cfg.Kafka.TickTopic, cfg.Kafka.GroupID, db, metrics, logger)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
		logger.Info("kafka wired", "brokers", cfg.Kafka.Brokers, "tick_topic", cfg.Kafka.TickTopic, "fee_topic", cfg.Kafka.FeeTopic)
	} else {
		logger.Warn("no kafka brokers configured, tick ingestion and accrual events disabled")
	}

	batch := service.NewBatchRecalculator(batchDeps, logger)
	go batch.Start(ctx, cfg.Batch.Interval)

	if cfg.TickRetentionDays > 0 {
		go pruneTicks(ctx, db, time.Duration(cfg.TickRetentionDays)*24*time.Hour, logger)
	}

	adminService := service.NewVaultAdminService(db, db, cfg.Fees.Schedule(), logger)

	handler := api.NewHandler(api.HandlerDeps{
		Nav:       navService,
		Accruals:  accrualService,
		Quotes:    accrualService,
		Snapshots: db,
		Admin:     adminService,
		Batch:     batch,
		DB:        db,
	}, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           api.SetupRoutes(handler, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("component failed, shutting down", "error", runErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	return runErr
}

// newBatchLock returns the process-local batch guard, chained with a Redis
// lock when a Redis URL is configured so that only one replica runs a batch
func newBatchLock(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (lock.Locker, func(), error) {
	guard := lock.NewInFlightGuard()
	if cfg.URL == "" {
		return guard, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info("distributed batch lock enabled", "key", cfg.LockKey, "ttl", cfg.LockTTL, "refresh", cfg.LockRefresh)
	return lock.Chain{guard, lock.NewRedisLock(client, cfg.LockKey, cfg.LockTTL)}, func() { client.Close() }, nil
}

func pruneTicks(ctx context.Context, db *database.DB, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().UTC().Add(-retention)
		n, err := db.DeletePriceTicksOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("failed to prune price ticks", "error", err)
		} else if n > 0 {
			logger.Info("pruned price ticks", "deleted", n, "cutoff", cutoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
