package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/circuitbreaker"
	"github.com/meridianlab/listingintel/internal/config"
	"github.com/meridianlab/listingintel/internal/db"
	"github.com/meridianlab/listingintel/internal/httpapi"
	"github.com/meridianlab/listingintel/internal/insights"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/pipeline"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/ratecontrol"
	"github.com/meridianlab/listingintel/internal/runcache"
	"github.com/meridianlab/listingintel/internal/streaming"
	"github.com/meridianlab/listingintel/internal/synthesis"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Prompt catalogue, optionally layered with on-disk templates.
	store := prompts.NewStore(logger)
	if cfg.Pipeline.TemplateDir != "" {
		if err := store.LoadDirectory(cfg.Pipeline.TemplateDir); err != nil {
			if prompts.IsLoadError(err) {
				logger.Warn("Some templates failed to load", zap.Error(err))
			} else {
				logger.Fatal("Template directory unreadable", zap.Error(err))
			}
		}
		if cfg.Pipeline.WatchTemplates {
			stopWatch := make(chan struct{})
			defer close(stopWatch)
			if err := store.Watch(cfg.Pipeline.TemplateDir, stopWatch); err != nil {
				logger.Warn("Template watch unavailable", zap.Error(err))
			}
		}
	}

	// Completion transport behind the circuit breaker.
	httpClient := llm.NewHTTPClient(logger)
	client := circuitbreaker.WrapClient(httpClient, "completion", circuitbreaker.Config{
		FailureThreshold:    uint32(cfg.Breaker.FailureThreshold),
		SuccessThreshold:    uint32(cfg.Breaker.SuccessThreshold),
		OpenTimeout:         cfg.Breaker.OpenTimeout,
		MaxHalfOpenRequests: 1,
	}, logger)

	invoker := agents.NewInvoker(client, store, logger)
	pacer := ratecontrol.NewIntervalPacer(cfg.Pipeline.RequestsPerMinute, cfg.Pipeline.CourtesyDelay)
	synth := synthesis.NewSynthesizer(invoker, logger)
	resolver := llm.NewEnvResolver(map[string]llm.Profile{
		"default": {
			Provider:  cfg.Provider.Provider,
			Model:     cfg.Provider.Model,
			APIKeyEnv: cfg.Provider.APIKeyEnv,
		},
	})

	bus := streaming.NewBus(0)
	opts := []pipeline.RunnerOption{pipeline.WithBus(bus)}

	if cfg.Storage.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, report cache disabled", zap.Error(err))
		} else {
			opts = append(opts, pipeline.WithCache(runcache.New(rdb, cfg.Storage.CacheTTL, logger)))
			defer rdb.Close()
		}
	}
	if cfg.Storage.PostgresDSN != "" {
		archive, err := db.Open(cfg.Storage.PostgresDSN, logger)
		if err != nil {
			logger.Warn("Postgres unreachable, run archive disabled", zap.Error(err))
		} else {
			if err := archive.Migrate(ctx); err != nil {
				logger.Fatal("Archive migration failed", zap.Error(err))
			}
			opts = append(opts, pipeline.WithArchive(archive))
			defer archive.Close()
		}
	}

	runner := pipeline.NewRunner(invoker, pacer, synth, resolver, "default",
		cfg.Provider.Temperature, cfg.Pipeline.MinAgents, logger, opts...)
	manager := pipeline.NewManager(runner, logger)

	insightStore, err := insights.NewStore(cfg.Storage.InsightsDir, logger)
	if err != nil {
		logger.Fatal("Insight store unavailable", zap.Error(err))
	}

	api := httpapi.NewServer(manager, bus, insightStore,
		httpapi.NewTokenVerifier(cfg.Server.AuthSecret), logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info("Metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, metricsMux); err != nil {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
