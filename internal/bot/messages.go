package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/history"
	"modlog/internal/storage"
	"modlog/internal/transcript"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.GuildID == "" {
		return
	}
	b.recent.Add(msg.Message)
	b.cacheMessage(context.Background(), msg.Message)
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, msg *discordgo.MessageUpdate) {
	if msg.GuildID == "" {
		return
	}
	b.recent.Update(msg.Message)
	if msg.Content != "" || len(msg.Attachments) > 0 {
		b.cacheMessage(context.Background(), msg.Message)
	}
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.MessageReaction == nil || event.GuildID == "" {
		return
	}
	b.recent.AddReaction(event.ChannelID, event.MessageID, event.Emoji, event.UserID == b.botUserID())
}

func (b *Bot) onMessageReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.MessageReaction == nil || event.GuildID == "" {
		return
	}
	b.recent.RemoveReaction(event.ChannelID, event.MessageID, event.Emoji, event.UserID == b.botUserID())
}

func (b *Bot) onMessageReactionRemoveAll(session *discordgo.Session, event *discordgo.MessageReactionRemoveAll) {
	if event.MessageReaction == nil || event.GuildID == "" {
		return
	}
	b.recent.ClearReactions(event.ChannelID, event.MessageID)
}

func (b *Bot) cacheMessage(ctx context.Context, msg *discordgo.Message) {
	if !b.cfg.MessageCache.Enabled || msg == nil {
		return
	}

	attachments, err := transcript.EncodeCachedAttachments(msg.Attachments)
	if err != nil {
		b.logger.Debug("attachment encoding failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	row := storage.CachedMessage{
		MessageID:   msg.ID,
		GuildID:     msg.GuildID,
		ChannelID:   msg.ChannelID,
		Content:     msg.Content,
		Attachments: attachments,
		CreatedAt:   msg.Timestamp,
	}
	if msg.Author != nil {
		row.AuthorID = msg.Author.ID
		row.AuthorUsername = msg.Author.Username
	}

	if err := b.store.UpsertCachedMessage(ctx, row); err != nil {
		b.metrics.CacheWritesTotal.WithLabelValues("upsert", "error").Inc()
		b.logger.Warn("message cache write failed", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	b.metrics.CacheWritesTotal.WithLabelValues("upsert", "ok").Inc()
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()

	var live *discordgo.Message
	if found, _ := b.recent.Take(event.ChannelID, []string{event.ID}); len(found) == 1 {
		live = found[0]
	}

	cached, err := b.store.CachedMessage(ctx, event.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.logger.Debug("message cache lookup failed", zap.String("message_id", event.ID), zap.Error(err))
	}
	hasCached := err == nil

	deleted := deletedMessageFrom(event.Message, live, cached, hasCached)
	if deleted.Author != nil && deleted.Author.Bot && deleted.Author.ID == b.botUserID() {
		b.forgetMessages(ctx, []string{event.ID})
		return
	}

	b.sendLogEmbed(ctx, event.GuildID, history.EventMessageDelete, b.messageDeleteEmbed(deleted))
	b.forgetMessages(ctx, []string{event.ID})

	authorID := ""
	if deleted.Author != nil {
		authorID = deleted.Author.ID
	}
	b.history.Record(ctx, storage.LogEntry{
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		MessageID: event.ID,
		Event:     history.EventMessageDelete,
		UserID:    authorID,
		Details:   truncate(deleted.Content, 200),
	})
}

// deletedMessageFrom merges what is known about a deleted message: the live
// copy when tracked, else the cached row, else just the identifiers.
func deletedMessageFrom(event, live *discordgo.Message, cached storage.CachedMessage, hasCached bool) *discordgo.Message {
	if live != nil {
		return live
	}
	msg := &discordgo.Message{ID: event.ID, ChannelID: event.ChannelID, GuildID: event.GuildID}
	if hasCached {
		msg.Content = cached.Content
		if cached.AuthorID != "" {
			msg.Author = &discordgo.User{ID: cached.AuthorID, Username: cached.AuthorUsername}
		}
	}
	return msg
}

func (b *Bot) messageDeleteEmbed(msg *discordgo.Message) *discordgo.MessageEmbed {
	author := "Unknown"
	if msg.Author != nil {
		author = fmt.Sprintf("<@%s> (%s)", msg.Author.ID, msg.Author.Username)
	}
	content := msg.Content
	if content == "" {
		content = "*content unavailable*"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Author", Value: author, Inline: true},
		{Name: "Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
		{Name: "Content", Value: truncate(content, 1024), Inline: false},
	}
	if n := len(msg.Attachments); n > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Attachments", Value: plural(n, "file"), Inline: true})
	}

	embed := commandEmbed("Message deleted", "", b.cfg.Notifications.EmbedColors.Delete, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Message ID: " + msg.ID}
	return embed
}

func (b *Bot) forgetMessages(ctx context.Context, ids []string) {
	if !b.cfg.MessageCache.Enabled {
		return
	}
	for _, id := range ids {
		if err := b.store.DeleteCachedMessage(ctx, id); err != nil {
			b.metrics.CacheWritesTotal.WithLabelValues("delete", "error").Inc()
			b.logger.Debug("message cache delete failed", zap.String("message_id", id), zap.Error(err))
			continue
		}
		b.metrics.CacheWritesTotal.WithLabelValues("delete", "ok").Inc()
	}
}

func (b *Bot) botUserID() string {
	if b.session == nil || b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}
