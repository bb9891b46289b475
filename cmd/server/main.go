// Package main запускает симулятор солнечных электростанций.
// Сервис циклически воспроизводит записанные данные выработки нескольких станций
// и отдает текущие значения:
// - метрики Prometheus на /metrics
// - JSON API для данных, статуса и управления воспроизведением
// - опциональное зеркало снимка в Redis
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solar-simulator/internal/cache"
	"solar-simulator/internal/config"
	"solar-simulator/internal/dataset"
	"solar-simulator/internal/handlers"
	"solar-simulator/internal/metrics"
	"solar-simulator/internal/models"
	"solar-simulator/internal/replay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting solar simulator",
		zap.String("go_version", runtime.Version()),
		zap.Int("num_cpu", runtime.NumCPU()),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("simulator failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	catalog, err := config.LoadCatalog(cfg.FarmsFile)
	if err != nil {
		return err
	}

	series := dataset.LoadAll(cfg.DataDir, catalog.Farms, logger)
	stats := dataset.Summarize(series)
	logger.Info("datasets loaded",
		zap.Int("total_records", stats.TotalRecords),
		zap.Any("records_per_farm", stats.RecordsPerFarm),
		zap.Any("anomalies", stats.AnomalyCounts),
		zap.Time("start", stats.Start),
		zap.Time("end", stats.End),
	)

	clk := clock.New()
	engine := replay.New(catalog.Farms, series, replay.Options{
		Interval: cfg.UpdateInterval,
		Clock:    clk,
		Logger:   logger,
	})

	registry := metrics.NewRegistry()
	exporter := metrics.NewExporter(registry, catalog.Farms, engine, clk, logger)

	redisCache := connectCache(cfg, logger)
	var store handlers.SnapshotStore
	if redisCache != nil {
		store = redisCache
		defer redisCache.Close()
	}

	refresh := func(ctx context.Context) {
		exporter.Refresh()
		if redisCache == nil {
			return
		}
		if err := redisCache.StoreSnapshot(ctx, engine.All()); err != nil {
			logger.Warn("snapshot mirror failed", zap.Error(err))
		}
	}

	handler := handlers.NewHandler(handlers.Deps{
		Player:   engine,
		Catalog:  catalog,
		Registry: registry,
		Refresh:  refresh,
		Cache:    store,
		Settings: models.StatusConfig{
			UpdateInterval: cfg.UpdateInterval.Milliseconds(),
			Mode:           cfg.Mode,
			SpeedFactor:    cfg.SpeedFactor,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler.NewRouter(cfg.CORSOrigins),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	engine.Start()
	refresh(context.Background())

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go updateMetricsLoop(loopCtx, clk, cfg.MetricsInterval, refresh)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.ServerAddr),
			zap.Strings("farms", catalog.Names()),
			zap.Duration("update_interval", cfg.UpdateInterval),
			zap.Duration("metrics_interval", cfg.MetricsInterval),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		engine.Stop()
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopLoop()
	engine.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}

// connectCache подключается к Redis, если задан адрес.
// Если Redis недоступен, симулятор продолжает работу без кэша.
func connectCache(cfg *config.Config, logger *zap.Logger) *cache.RedisCache {
	if cfg.RedisAddr == "" {
		logger.Info("redis disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := cache.NewRedisCache(ctx, cache.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: 4,
	}, logger)
	if err != nil {
		logger.Warn("running without cache", zap.Error(err))
		return nil
	}
	return c
}

// updateMetricsLoop пересчитывает метрики на каждом интервале
func updateMetricsLoop(ctx context.Context, clk clock.Clock, interval time.Duration, refresh func(context.Context)) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
