package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/history"
	"modlog/internal/storage"
	"modlog/internal/transcript"
	"modlog/internal/utils"
)

func (b *Bot) onMessageDeleteBulk(session *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	if event.GuildID == "" || len(event.Messages) == 0 {
		return
	}
	deleterID := b.resolveAuditActor(event.GuildID, discordgo.AuditLogActionMessageBulkDelete, event.ChannelID)
	b.captureBulkDelete(context.Background(), event, deleterID)
}

// captureBulkDelete rebuilds the deleted batch, then stores the transcript
// and sends the notification concurrently. A storage failure never blocks
// or suppresses the notification.
func (b *Bot) captureBulkDelete(ctx context.Context, event *discordgo.MessageDeleteBulk, deleterID string) {
	deletedBy := mentionOrUnknown(deleterID)
	batch := b.collectBatch(ctx, event.GuildID, event.ChannelID, event.Messages)

	transcriptID := ""
	if b.cfg.Transcripts.Enabled {
		id, err := transcript.NewID()
		if err != nil {
			b.metrics.TranscriptsTotal.WithLabelValues("invalid").Inc()
			b.logger.Error("transcript id generation failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		} else {
			transcriptID = id
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.sendLogEmbed(ctx, event.GuildID, history.EventMessageDeleteBulk, b.bulkDeleteEmbed(event.ChannelID, len(batch), deletedBy, transcriptID))
	}()

	if transcriptID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			doc := b.assembler.Assemble(ctx, transcriptID, event.GuildID, event.ChannelID, batch)
			b.metrics.TranscriptSeconds.Observe(time.Since(start).Seconds())
			b.metrics.TranscriptMessages.Observe(float64(doc.MessagesCount))
			b.persistTranscript(ctx, event, deletedBy, len(batch), doc)
		}()
	}
	wg.Wait()

	b.forgetMessages(ctx, event.Messages)

	details := fmt.Sprintf("%s deleted", plural(len(batch), "message"))
	if transcriptID != "" {
		details += ", transcript " + transcriptID
	}
	b.history.Record(ctx, storage.LogEntry{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		Event:     history.EventMessageDeleteBulk,
		UserID:    deleterID,
		Details:   details,
	})
}

func (b *Bot) persistTranscript(ctx context.Context, event *discordgo.MessageDeleteBulk, deletedBy string, count int, doc transcript.Document) {
	_, err := b.transcripts.Create(ctx, transcript.CreateParams{
		GuildID:      event.GuildID,
		ChannelID:    event.ChannelID,
		CapturedAt:   time.Now(),
		MessageCount: count,
		DeletedBy:    deletedBy,
		Document:     doc,
	})
	if err != nil {
		result := "store_error"
		if errors.Is(err, transcript.ErrCountMismatch) {
			result = "invalid"
		}
		b.metrics.TranscriptsTotal.WithLabelValues(result).Inc()
		b.logger.Error("transcript write failed",
			zap.String("transcript_id", doc.ID),
			zap.String("guild_id", event.GuildID),
			zap.String("channel_id", event.ChannelID),
			zap.Error(err),
		)
		return
	}
	b.metrics.TranscriptsTotal.WithLabelValues("stored").Inc()
}

// collectBatch returns one message per deleted id: the tracked full copy
// when available, a partial rebuilt from the message cache otherwise, and a
// bare id-only message as the last resort.
func (b *Bot) collectBatch(ctx context.Context, guildID, channelID string, ids []string) []*discordgo.Message {
	found, missing := b.recent.Take(channelID, ids)
	batch := make([]*discordgo.Message, 0, len(ids))

	for _, m := range found {
		if m.Author == nil || m.Content == "" {
			b.fillFromCache(ctx, m)
		}
		batch = append(batch, m)
	}
	for _, id := range missing {
		partial := &discordgo.Message{ID: id, ChannelID: channelID, GuildID: guildID}
		b.fillFromCache(ctx, partial)
		batch = append(batch, partial)
	}
	return batch
}

// fillFromCache sets the author and content of m from the message cache
// where m lacks them.
func (b *Bot) fillFromCache(ctx context.Context, m *discordgo.Message) {
	cached, err := b.store.CachedMessage(ctx, m.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Debug("message cache lookup failed", zap.String("message_id", m.ID), zap.Error(err))
		}
		return
	}
	if m.Content == "" {
		m.Content = cached.Content
	}
	if m.Author == nil && cached.AuthorID != "" {
		m.Author = &discordgo.User{ID: cached.AuthorID, Username: cached.AuthorUsername}
	}
}

func (b *Bot) bulkDeleteEmbed(channelID string, count int, deletedBy, transcriptID string) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Channel", Value: "<#" + channelID + ">", Inline: true},
		{Name: "Deleted by", Value: deletedBy, Inline: true},
	}
	if transcriptID != "" && b.publicURL != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Transcript",
			Value:  fmt.Sprintf("[View transcript](%s)", utils.TranscriptURL(b.publicURL, transcriptID)),
			Inline: false,
		})
	}

	embed := commandEmbed("Bulk message deletion", plural(count, "message")+" deleted", b.cfg.Notifications.EmbedColors.Bulk, fields)
	if transcriptID != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Transcript ID: " + transcriptID}
	}
	return embed
}
