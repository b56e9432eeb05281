// Package history records every notification the bot emits so the
// dashboard can replay a guild's moderation log.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"modlog/internal/storage"
)

const (
	EventMessageDelete     = "messageDelete"
	EventMessageDeleteBulk = "messageDeleteBulk"
	EventLogChannelUpdate  = "logChannelUpdate"
)

// Events lists the keys accepted by log channel configuration.
var Events = []string{storage.DefaultEvent, EventMessageDelete, EventMessageDeleteBulk, EventLogChannelUpdate}

func IsEvent(event string) bool {
	for _, e := range Events {
		if e == event {
			return true
		}
	}
	return false
}

type Store interface {
	AddLogEntry(ctx context.Context, entry storage.LogEntry) error
}

type Recorder struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, storage.LogEntry)
}

func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// SetNotifier registers a callback invoked after each entry is stored.
func (r *Recorder) SetNotifier(notify func(context.Context, storage.LogEntry)) {
	r.notify = notify
}

func (r *Recorder) Record(ctx context.Context, entry storage.LogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if r.store != nil {
		if err := r.store.AddLogEntry(ctx, entry); err != nil {
			r.logger.Warn("log history write failed", zap.String("guild_id", entry.GuildID), zap.String("event", entry.Event), zap.Error(err))
		}
	}
	if r.notify != nil {
		r.notify(ctx, entry)
	}
	r.logger.Info("log",
		zap.String("guild_id", entry.GuildID),
		zap.String("channel_id", entry.ChannelID),
		zap.String("user_id", entry.UserID),
		zap.String("event", entry.Event),
		zap.String("details", entry.Details),
	)
}
