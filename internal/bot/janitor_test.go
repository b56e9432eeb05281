package bot

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"modlog/internal/config"
	"modlog/internal/metrics"
	"modlog/internal/storage"
)

func TestJanitorRunOnce(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	if err := store.UpsertCachedMessage(ctx, storage.CachedMessage{MessageID: "old", GuildID: "g", ChannelID: "c", CreatedAt: now.Add(-100 * time.Hour)}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := store.UpsertCachedMessage(ctx, storage.CachedMessage{MessageID: "new", GuildID: "g", ChannelID: "c", CreatedAt: now}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if _, err := store.CreateTranscript(ctx, storage.Transcript{GuildID: "g", ChannelID: "c", CapturedAt: now.AddDate(0, 0, -10)}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	cfg := config.DefaultConfig()
	m := metrics.New(prometheus.NewRegistry())

	NewJanitor(store, cfg, m, zap.NewNop()).RunOnce(ctx, now)
	if _, err := store.CachedMessage(ctx, "old"); err == nil {
		t.Fatalf("expected stale cache row to be pruned")
	}
	if _, err := store.CachedMessage(ctx, "new"); err != nil {
		t.Fatalf("expected fresh cache row to survive: %v", err)
	}
	rows, _ := store.ListTranscripts(ctx, storage.TranscriptFilter{}, 10, 0)
	if len(rows) != 1 {
		t.Fatalf("expected transcripts to be kept by default, got %d", len(rows))
	}

	cfg.Transcripts.RetentionDays = 7
	NewJanitor(store, cfg, m, zap.NewNop()).RunOnce(ctx, now)
	rows, _ = store.ListTranscripts(ctx, storage.TranscriptFilter{}, 10, 0)
	if len(rows) != 0 {
		t.Fatalf("expected expired transcript to be pruned, got %d", len(rows))
	}
	if got := testutil.ToFloat64(m.PrunedRowsTotal.WithLabelValues("transcripts")); got != 1 {
		t.Fatalf("expected transcripts prune counter 1, got %v", got)
	}
}
