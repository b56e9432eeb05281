package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DefaultEvent is the log_channels key used when no per-event row exists.
const DefaultEvent = "default"

type LogChannel struct {
	GuildID   string    `json:"guildId"`
	Event     string    `json:"event"`
	ChannelID string    `json:"channelId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LogChannelFor returns the channel configured for event, falling back to
// the guild's default row. An empty string means nothing is configured.
func (s *Store) LogChannelFor(ctx context.Context, guildID, event string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id FROM log_channels
		WHERE guild_id = ? AND event IN (?, ?)
		ORDER BY CASE WHEN event = ? THEN 0 ELSE 1 END
		LIMIT 1`, guildID, event, DefaultEvent, event)

	var channelID string
	if err := row.Scan(&channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return channelID, nil
}

func (s *Store) SetLogChannel(ctx context.Context, guildID, event, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_channels (guild_id, event, channel_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, event) DO UPDATE SET
			channel_id = excluded.channel_id,
			updated_at = excluded.updated_at
	`, guildID, event, channelID, time.Now().Unix())
	return err
}

// DeleteLogChannel removes one mapping. It returns ErrNotFound when the
// guild had no row for event.
func (s *Store) DeleteLogChannel(ctx context.Context, guildID, event string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM log_channels WHERE guild_id = ? AND event = ?`, guildID, event)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListLogChannels(ctx context.Context, guildID string) ([]LogChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, event, channel_id, updated_at
		FROM log_channels WHERE guild_id = ?
		ORDER BY event`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []LogChannel{}
	for rows.Next() {
		var lc LogChannel
		var updated int64
		if err := rows.Scan(&lc.GuildID, &lc.Event, &lc.ChannelID, &updated); err != nil {
			return nil, err
		}
		lc.UpdatedAt = time.Unix(updated, 0)
		channels = append(channels, lc)
	}
	return channels, rows.Err()
}
