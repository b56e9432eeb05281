package storage

import (
	"context"
	"strings"
	"time"
)

type LogEntry struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guildId"`
	ChannelID string    `json:"channelId"`
	MessageID string    `json:"messageId"`
	Event     string    `json:"event"`
	UserID    string    `json:"userId"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

type LogFilter struct {
	GuildID string
	Event   string
	Since   time.Time
}

type EventCount struct {
	Event string `json:"event"`
	Count int    `json:"count"`
}

func (s *Store) AddLogEntry(ctx context.Context, entry LogEntry) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_history (guild_id, channel_id, message_id, event, user_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.GuildID, entry.ChannelID, entry.MessageID, entry.Event, entry.UserID, entry.Details, created.Unix())
	return err
}

func (s *Store) ListLogEntries(ctx context.Context, filter LogFilter, limit, offset int) ([]LogEntry, error) {
	where, args := filter.clause()
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, channel_id, message_id, event, user_id, details, created_at
		FROM log_history`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var entry LogEntry
		var created int64
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.ChannelID, &entry.MessageID, &entry.Event, &entry.UserID, &entry.Details, &created); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(created, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountLogEntriesByEvent groups the filtered history by event, largest first.
func (s *Store) CountLogEntriesByEvent(ctx context.Context, filter LogFilter) ([]EventCount, error) {
	where, args := filter.clause()
	rows, err := s.db.QueryContext(ctx, `
		SELECT event, COUNT(*) FROM log_history`+where+`
		GROUP BY event
		ORDER BY COUNT(*) DESC, event`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []EventCount{}
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Event, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *Store) CleanupLogHistory(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM log_history WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (f LogFilter) clause() (string, []any) {
	var conds []string
	var args []any
	if f.GuildID != "" {
		conds = append(conds, "guild_id = ?")
		args = append(args, f.GuildID)
	}
	if f.Event != "" {
		conds = append(conds, "event = ?")
		args = append(args, f.Event)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.Unix())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
