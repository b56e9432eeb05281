package transcript

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/storage"
)

// MessageCache is the read side of the persisted message cache.
type MessageCache interface {
	CachedMessage(ctx context.Context, messageID string) (storage.CachedMessage, error)
}

// Resolver recovers attachment descriptors for messages whose live copy no
// longer carries them.
type Resolver struct {
	cache  MessageCache
	logger *zap.Logger
}

func NewResolver(cache MessageCache, logger *zap.Logger) *Resolver {
	return &Resolver{cache: cache, logger: logger}
}

// Resolve prefers the live attachment list and otherwise falls back to the
// cached copy. Lookup and decode failures mean "no attachments".
func (r *Resolver) Resolve(ctx context.Context, messageID string, live []*discordgo.MessageAttachment) []Attachment {
	if len(live) > 0 {
		return FromDiscord(live)
	}
	if r == nil || r.cache == nil {
		return nil
	}

	cached, err := r.cache.CachedMessage(ctx, messageID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Debug("attachment cache lookup failed", zap.String("message_id", messageID), zap.Error(err))
		}
		return nil
	}
	if cached.Attachments == "" {
		return nil
	}

	attachments, err := DecodeCachedAttachments(cached.Attachments)
	if err != nil {
		r.logger.Debug("cached attachments unreadable", zap.String("message_id", messageID), zap.Error(err))
		return nil
	}
	return attachments
}

// FromDiscord maps live attachments verbatim.
func FromDiscord(live []*discordgo.MessageAttachment) []Attachment {
	var out []Attachment
	for _, a := range live {
		if a == nil {
			continue
		}
		size := a.Size
		contentType := a.ContentType
		att := Attachment{Name: a.Filename, URL: a.URL, Size: &size}
		if contentType != "" {
			att.ContentType = &contentType
		}
		out = append(out, att)
	}
	return out
}

// EncodeCachedAttachments produces the JSON array stored in the message
// cache, or "" when there is nothing to store.
func EncodeCachedAttachments(live []*discordgo.MessageAttachment) (string, error) {
	attachments := FromDiscord(live)
	if len(attachments) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func DecodeCachedAttachments(raw string) ([]Attachment, error) {
	var attachments []Attachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, nil
	}
	return attachments, nil
}
