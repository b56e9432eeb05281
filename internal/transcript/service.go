package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"modlog/internal/storage"
)

var ErrCountMismatch = errors.New("transcript message count does not match document")

// Repository is the persistence the service needs; *storage.Store satisfies it.
type Repository interface {
	CreateTranscript(ctx context.Context, t storage.Transcript) (string, error)
	ListTranscripts(ctx context.Context, filter storage.TranscriptFilter, limit, offset int) ([]storage.Transcript, error)
	GetTranscript(ctx context.Context, id string) (storage.Transcript, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

type CreateParams struct {
	GuildID      string
	ChannelID    string
	CapturedAt   time.Time
	MessageCount int
	DeletedBy    string
	Document     Document
}

// Entry is the public shape of a stored transcript. Messages is never nil.
type Entry struct {
	ID           string    `json:"id"`
	GuildID      string    `json:"guildId"`
	ChannelID    string    `json:"channelId"`
	CapturedAt   int64     `json:"capturedAt"`
	MessageCount int       `json:"messageCount"`
	DeletedBy    string    `json:"deletedBy"`
	Messages     []Message `json:"messages"`
	Error        string    `json:"error,omitempty"`
}

type ListResult struct {
	Transcripts []Entry `json:"transcripts"`
	Count       int     `json:"count"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
}

// Create checks that the declared count matches the document, encodes it
// and stores it under the document's id, generating one when it is empty.
func (s *Service) Create(ctx context.Context, p CreateParams) (string, error) {
	doc := p.Document
	if p.MessageCount != doc.MessagesCount || doc.MessagesCount != len(doc.Messages) {
		return "", fmt.Errorf("%w: messageCount=%d messagesCount=%d messages=%d",
			ErrCountMismatch, p.MessageCount, doc.MessagesCount, len(doc.Messages))
	}

	if doc.ID == "" {
		id, err := NewID()
		if err != nil {
			return "", fmt.Errorf("transcript id: %w", err)
		}
		doc.ID = id
	}

	payload, err := Encode(doc)
	if err != nil {
		return "", err
	}

	id, err := s.repo.CreateTranscript(ctx, storage.Transcript{
		ID:           doc.ID,
		GuildID:      p.GuildID,
		ChannelID:    p.ChannelID,
		CapturedAt:   p.CapturedAt,
		MessageCount: p.MessageCount,
		DeletedBy:    p.DeletedBy,
		Payload:      sql.NullString{String: payload, Valid: true},
	})
	if err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return id, nil
}

// List decodes each row independently. A row that fails to decode is
// returned with no messages and an error marker.
func (s *Service) List(ctx context.Context, filter storage.TranscriptFilter, limit, offset int) (ListResult, error) {
	rows, err := s.repo.ListTranscripts(ctx, filter, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list transcripts: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, s.entry(row))
	}
	return ListResult{Transcripts: entries, Count: len(entries), Limit: limit, Offset: offset}, nil
}

// Get returns storage.ErrNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	row, err := s.repo.GetTranscript(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return s.entry(row), nil
}

func (s *Service) entry(row storage.Transcript) Entry {
	entry := Entry{
		ID:           row.ID,
		GuildID:      row.GuildID,
		ChannelID:    row.ChannelID,
		CapturedAt:   row.CapturedAt.Unix(),
		MessageCount: row.MessageCount,
		DeletedBy:    row.DeletedBy,
		Messages:     []Message{},
	}
	if !row.Payload.Valid {
		return entry
	}

	doc, err := Decode(row.Payload.String)
	if err != nil {
		s.logger.Warn("transcript payload unreadable", zap.String("transcript_id", row.ID), zap.Error(err))
		entry.Error = "failed to decode transcript"
		return entry
	}
	if doc.Messages != nil {
		entry.Messages = doc.Messages
	}
	return entry
}
