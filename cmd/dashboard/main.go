package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"modlog/internal/analytics"
	"modlog/internal/config"
	"modlog/internal/dashboard"
	"modlog/internal/metrics"
	"modlog/internal/storage"
	"modlog/internal/transcript"
)

func main() {
	cfg, err := config.LoadDashboard()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := dashboard.NewServer(logger, cfg.Dashboard, dashboard.Deps{
		Store:       store,
		Transcripts: transcript.NewService(store, logger),
		Analytics:   analytics.New(store),
		Metrics:     metrics.New(registry),
		Gatherer:    registry,
	})
	srv.RegisterRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("dashboard server error", zap.Error(err))
	}
	logger.Info("dashboard stopped")
}
