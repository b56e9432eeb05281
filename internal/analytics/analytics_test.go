package analytics

import (
	"context"
	"testing"
	"time"

	"modlog/internal/storage"
)

func TestReportTotalsEvents(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	for _, event := range []string{"messageDelete", "messageDelete", "messageDeleteBulk"} {
		if err := store.AddLogEntry(ctx, storage.LogEntry{GuildID: "g1", Event: event}); err != nil {
			t.Fatalf("add entry: %v", err)
		}
	}
	if err := store.AddLogEntry(ctx, storage.LogEntry{GuildID: "g2", Event: "messageDelete"}); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	report, err := New(store).Report(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected 3 entries, got %d", report.Total)
	}
	if len(report.ByEvent) != 2 || report.ByEvent[0].Event != "messageDelete" || report.ByEvent[0].Count != 2 {
		t.Fatalf("unexpected breakdown: %+v", report.ByEvent)
	}
}
