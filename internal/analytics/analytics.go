package analytics

import (
	"context"
	"time"

	"modlog/internal/storage"
)

type Store interface {
	CountLogEntriesByEvent(ctx context.Context, filter storage.LogFilter) ([]storage.EventCount, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type Report struct {
	GuildID string               `json:"guildId"`
	Since   int64                `json:"since"`
	Total   int                  `json:"total"`
	ByEvent []storage.EventCount `json:"byEvent"`
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	counts, err := s.store.CountLogEntriesByEvent(ctx, storage.LogFilter{GuildID: guildID, Since: since})
	if err != nil {
		return Report{}, err
	}

	report := Report{GuildID: guildID, Since: since.Unix(), ByEvent: counts}
	for _, c := range counts {
		report.Total += c.Count
	}
	return report, nil
}
