package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transcript is one persisted bulk-deletion capture. Payload is the encoded
// document; Payload.Valid is false only for rows written without one.
type Transcript struct {
	ID           string
	GuildID      string
	ChannelID    string
	CapturedAt   time.Time
	MessageCount int
	DeletedBy    string
	Payload      sql.NullString
}

type TranscriptFilter struct {
	GuildID   string
	ChannelID string
}

// CreateTranscript inserts t and returns its id, generating one when t.ID
// is empty. Rows are never updated afterwards.
func (s *Store) CreateTranscript(ctx context.Context, t Transcript) (string, error) {
	if t.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		t.ID = id.String()
	}
	if t.CapturedAt.IsZero() {
		t.CapturedAt = time.Now()
	}
	if t.DeletedBy == "" {
		t.DeletedBy = "Unknown"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, guild_id, channel_id, captured_at, message_count, deleted_by, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.GuildID, t.ChannelID, t.CapturedAt.Unix(), t.MessageCount, t.DeletedBy, t.Payload)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *Store) ListTranscripts(ctx context.Context, filter TranscriptFilter, limit, offset int) ([]Transcript, error) {
	var conds []string
	var args []any
	if filter.GuildID != "" {
		conds = append(conds, "guild_id = ?")
		args = append(args, filter.GuildID)
	}
	if filter.ChannelID != "" {
		conds = append(conds, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, channel_id, captured_at, message_count, deleted_by, payload
		FROM transcripts`+where+`
		ORDER BY captured_at DESC, id
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTranscript(ctx context.Context, id string) (Transcript, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, channel_id, captured_at, message_count, deleted_by, payload
		FROM transcripts WHERE id = ?`, id)
	t, err := scanTranscript(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcript{}, ErrNotFound
		}
		return Transcript{}, err
	}
	return t, nil
}

func (s *Store) PruneTranscripts(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE captured_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (Transcript, error) {
	var t Transcript
	var captured int64
	if err := row.Scan(&t.ID, &t.GuildID, &t.ChannelID, &captured, &t.MessageCount, &t.DeletedBy, &t.Payload); err != nil {
		return Transcript{}, err
	}
	t.CapturedAt = time.Unix(captured, 0)
	return t, nil
}
