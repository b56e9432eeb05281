package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CachedMessage is the durable copy of a message kept so that deletions can
// still be described after the gateway state has evicted it.
type CachedMessage struct {
	MessageID      string
	GuildID        string
	ChannelID      string
	AuthorID       string
	AuthorUsername string
	Content        string
	// Attachments holds the raw JSON array, or "" when the message had none.
	Attachments string
	CreatedAt   time.Time
}

func (s *Store) UpsertCachedMessage(ctx context.Context, msg CachedMessage) error {
	var attachments sql.NullString
	if msg.Attachments != "" {
		attachments = sql.NullString{String: msg.Attachments, Valid: true}
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_cache (
			message_id, guild_id, channel_id, author_id, author_username, content, attachments, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			content = excluded.content,
			attachments = COALESCE(excluded.attachments, message_cache.attachments)
	`, msg.MessageID, msg.GuildID, msg.ChannelID, msg.AuthorID, msg.AuthorUsername, msg.Content, attachments, created.Unix())
	return err
}

// CachedMessage returns ErrNotFound when the message was never cached or
// has been pruned.
func (s *Store) CachedMessage(ctx context.Context, messageID string) (CachedMessage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT message_id, guild_id, channel_id, author_id, author_username, content, attachments, created_at
		FROM message_cache WHERE message_id = ?`, messageID)

	var msg CachedMessage
	var attachments sql.NullString
	var created int64
	err := row.Scan(&msg.MessageID, &msg.GuildID, &msg.ChannelID, &msg.AuthorID, &msg.AuthorUsername, &msg.Content, &attachments, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CachedMessage{}, ErrNotFound
		}
		return CachedMessage{}, err
	}
	msg.Attachments = attachments.String
	msg.CreatedAt = time.Unix(created, 0)
	return msg, nil
}

func (s *Store) DeleteCachedMessage(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM message_cache WHERE message_id = ?`, messageID)
	return err
}

func (s *Store) PruneMessageCache(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message_cache WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
