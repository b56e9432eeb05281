package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/config"
	"modlog/internal/history"
	"modlog/internal/metrics"
	"modlog/internal/storage"
	"modlog/internal/transcript"
	"modlog/internal/utils"
)

type Bot struct {
	cfg         config.Config
	logger      *zap.Logger
	store       *storage.Store
	history     *history.Recorder
	transcripts *transcript.Service
	assembler   *transcript.Assembler
	metrics     *metrics.Metrics
	session     *discordgo.Session
	recent      *recentMessages
	publicURL   string
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, recorder *history.Recorder, transcripts *transcript.Service, m *metrics.Metrics) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent
	// Bulk deletions are stripped from the session state before handlers
	// run, so recent messages are tracked in b.recent instead.
	session.State.MaxMessageCount = 0

	b := &Bot{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		history:     recorder,
		transcripts: transcripts,
		metrics:     m,
		session:     session,
		recent:      newRecentMessages(cfg.MessageCache.StateMessages),
		publicURL:   cfg.Dashboard.PublicURL,
	}

	if normalized, err := utils.NormalizeBaseURL(cfg.Dashboard.PublicURL); err == nil {
		b.publicURL = normalized
	} else {
		logger.Warn("dashboard public url is invalid, transcript links disabled", zap.String("public_url", cfg.Dashboard.PublicURL), zap.Error(err))
		b.publicURL = ""
	}

	resolver := transcript.NewResolver(store, logger)
	b.assembler = transcript.NewAssembler(resolver, &stateDirectory{state: session.State}, cfg.Transcripts.Workers, logger)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onMessageReactionRemove)
	b.session.AddHandler(b.onMessageReactionRemoveAll)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

// resolveAuditActor returns the user behind the most recent matching audit
// log entry, or "" when none falls inside the configured window.
func (b *Bot) resolveAuditActor(guildID string, actionType discordgo.AuditLogAction, targetID string) string {
	logs, err := b.session.GuildAuditLog(guildID, "", "", int(actionType), 5)
	if err != nil || logs == nil {
		if err != nil {
			b.logger.Debug("audit log lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		}
		return ""
	}
	window := time.Duration(b.cfg.AuditWindowSeconds) * time.Second
	return auditActor(logs.AuditLogEntries, targetID, window, time.Now())
}

// auditActor picks the first entry for targetID created within window of
// now. Entries whose id carries no readable timestamp are never attributed.
func auditActor(entries []*discordgo.AuditLogEntry, targetID string, window time.Duration, now time.Time) string {
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if targetID != "" && entry.TargetID != targetID {
			continue
		}
		ts, err := discordgo.SnowflakeTimestamp(entry.ID)
		if err != nil || now.Sub(ts) > window {
			continue
		}
		return entry.UserID
	}
	return ""
}

func mentionOrUnknown(userID string) string {
	if userID == "" {
		return "Unknown"
	}
	return "<@" + userID + ">"
}

// logChannel resolves where event notifications for guildID go: the
// per-event row, then the guild default, then the configured fallback.
func (b *Bot) logChannel(ctx context.Context, guildID, event string) string {
	channelID, err := b.store.LogChannelFor(ctx, guildID, event)
	if err != nil {
		b.logger.Warn("log channel lookup failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
	}
	if channelID == "" {
		channelID = b.cfg.DefaultLogChannel
	}
	return channelID
}

func (b *Bot) sendLogEmbed(ctx context.Context, guildID, event string, embed *discordgo.MessageEmbed) {
	channelID := b.logChannel(ctx, guildID, event)
	if channelID == "" || embed == nil {
		b.metrics.NotificationsTotal.WithLabelValues(event, "no_channel").Inc()
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.metrics.NotificationsTotal.WithLabelValues(event, "error").Inc()
		b.logger.Warn("notification send failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.String("event", event), zap.Error(err))
		return
	}
	b.metrics.NotificationsTotal.WithLabelValues(event, "sent").Inc()
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	}); err != nil {
		b.logger.Warn("interaction response failed", zap.String("interaction_id", interaction.ID), zap.Error(err))
	}
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
