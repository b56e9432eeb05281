// Package dashboard serves the JSON API consumed by the web dashboard:
// transcripts, log channel configuration, history and stats.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"modlog/internal/analytics"
	"modlog/internal/config"
	"modlog/internal/metrics"
	"modlog/internal/storage"
	"modlog/internal/transcript"
)

// Store is the subset of *storage.Store the dashboard reads and writes.
type Store interface {
	Ping() error
	ListLogChannels(ctx context.Context, guildID string) ([]storage.LogChannel, error)
	SetLogChannel(ctx context.Context, guildID, event, channelID string) error
	DeleteLogChannel(ctx context.Context, guildID, event string) error
	ListLogEntries(ctx context.Context, filter storage.LogFilter, limit, offset int) ([]storage.LogEntry, error)
}

type Server struct {
	Logger *zap.Logger
	Config config.DashboardConfig

	store       Store
	transcripts *transcript.Service
	analytics   *analytics.Service
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	limiter     *rate.Limiter
	router      *gin.Engine
}

type Deps struct {
	Store       Store
	Transcripts *transcript.Service
	Analytics   *analytics.Service
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}

func NewServer(logger *zap.Logger, cfg config.DashboardConfig, deps Deps) *Server {
	s := &Server{
		Logger:      logger,
		Config:      cfg,
		store:       deps.Store,
		transcripts: deps.Transcripts,
		analytics:   deps.Analytics,
		metrics:     deps.Metrics,
		gatherer:    deps.Gatherer,
		router:      gin.New(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return s
}

func (s *Server) RegisterRoutes() {
	s.router.Use(ginzap.Ginzap(s.Logger, time.RFC3339, true))
	s.router.Use(ginzap.RecoveryWithZap(s.Logger, true))
	s.router.Use(s.middlewareMetrics)

	s.router.GET("/health", s.healthHandler)
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// Transcript links in bulk deletion notifications point here.
	s.router.GET("/transcripts/:id", s.middlewareRateLimit, s.middlewareAuth, s.transcriptGetHandler)

	api := s.router.Group("/api", s.middlewareRateLimit, s.middlewareAuth)
	api.GET("/transcripts", s.transcriptListHandler)
	api.GET("/transcripts/:id", s.transcriptGetHandler)

	guild := api.Group("/guilds/:guildId")
	guild.GET("/log-channels", s.logChannelListHandler)
	guild.PUT("/log-channels/:event", s.logChannelSetHandler)
	guild.DELETE("/log-channels/:event", s.logChannelDeleteHandler)
	guild.GET("/history", s.historyHandler)
	guild.GET("/stats", s.statsHandler)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("dashboard listening", zap.String("addr", s.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthHandler(ctx *gin.Context) {
	if err := s.store.Ping(); err != nil {
		s.Logger.Error("Database ping failed", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
