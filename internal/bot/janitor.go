package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"modlog/internal/config"
	"modlog/internal/metrics"
)

type PruneStore interface {
	PruneMessageCache(ctx context.Context, before time.Time) (int64, error)
	CleanupLogHistory(ctx context.Context, retentionDays int) (int64, error)
	PruneTranscripts(ctx context.Context, before time.Time) (int64, error)
}

// Janitor enforces the retention settings of the message cache, the log
// history and, when configured, the transcripts.
type Janitor struct {
	store   PruneStore
	cfg     config.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewJanitor(store PruneStore, cfg config.Config, m *metrics.Metrics, logger *zap.Logger) *Janitor {
	return &Janitor{store: store, cfg: cfg, metrics: m, logger: logger}
}

// Run prunes once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	j.RunOnce(ctx, time.Now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			j.RunOnce(ctx, now)
		}
	}
}

func (j *Janitor) RunOnce(ctx context.Context, now time.Time) {
	if j.cfg.MessageCache.TTLHours > 0 {
		before := now.Add(-time.Duration(j.cfg.MessageCache.TTLHours) * time.Hour)
		n, err := j.store.PruneMessageCache(ctx, before)
		j.report("message_cache", n, err)
	}
	if j.cfg.History.RetentionDays > 0 {
		n, err := j.store.CleanupLogHistory(ctx, j.cfg.History.RetentionDays)
		j.report("log_history", n, err)
	}
	if j.cfg.Transcripts.RetentionDays > 0 {
		n, err := j.store.PruneTranscripts(ctx, now.AddDate(0, 0, -j.cfg.Transcripts.RetentionDays))
		j.report("transcripts", n, err)
	}
}

func (j *Janitor) report(table string, n int64, err error) {
	if err != nil {
		j.logger.Warn("retention prune failed", zap.String("table", table), zap.Error(err))
		return
	}
	if n > 0 {
		j.metrics.PrunedRowsTotal.WithLabelValues(table).Add(float64(n))
		j.logger.Info("retention prune", zap.String("table", table), zap.Int64("rows", n))
	}
}
