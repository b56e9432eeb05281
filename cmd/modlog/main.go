package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"modlog/internal/analytics"
	"modlog/internal/bot"
	"modlog/internal/config"
	"modlog/internal/dashboard"
	"modlog/internal/history"
	"modlog/internal/metrics"
	"modlog/internal/storage"
	"modlog/internal/transcript"
)

const janitorInterval = time.Hour

func main() {
	cfg, err := config.Load()
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
	m := metrics.New(registry)

	recorder := history.NewRecorder(store, logger)
	recorder.SetNotifier(func(_ context.Context, entry storage.LogEntry) {
		m.LogEntriesTotal.WithLabelValues(entry.Event).Inc()
	})
	transcripts := transcript.NewService(store, logger)

	botSvc, err := bot.New(cfg, logger, store, recorder, transcripts, m)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go bot.NewJanitor(store, cfg, m, logger).Run(runCtx, janitorInterval)

	dashboardDone := make(chan struct{})
	if cfg.Dashboard.Enabled {
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := dashboard.NewServer(logger, cfg.Dashboard, dashboard.Deps{
			Store:       store,
			Transcripts: transcripts,
			Analytics:   analytics.New(store),
			Metrics:     m,
			Gatherer:    registry,
		})
		srv.RegisterRoutes()
		go func() {
			defer close(dashboardDone)
			if err := srv.Run(runCtx); err != nil {
				logger.Error("dashboard server error", zap.Error(err))
			}
		}()
	} else {
		close(dashboardDone)
	}

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)

	select {
	case <-dashboardDone:
	case <-ctx.Done():
	}
}
