package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/history"
	"modlog/internal/storage"
	"modlog/internal/utils"
)

const maxTranscriptListing = 10

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, commandEmbed("Moderation log", "This command only works in a server.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "logchannel":
		b.handleLogChannelCommand(ctx, session, interaction, data.Options)
	case "transcripts":
		b.handleTranscriptsCommand(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleLogChannelCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Log channels"
	colors := b.cfg.Notifications.EmbedColors
	if len(options) == 0 {
		b.respondEmbed(session, interaction, commandEmbed(title, "Missing subcommand.", colors.Error, nil), true)
		return
	}

	sub := options[0]
	args := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		args[opt.Name] = opt
	}

	switch sub.Name {
	case "view":
		channels, err := b.store.ListLogChannels(ctx, interaction.GuildID)
		if err != nil {
			b.logger.Error("log channel listing failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respondEmbed(session, interaction, commandEmbed(title, "Could not load the configuration.", colors.Error, nil), true)
			return
		}
		b.respondEmbed(session, interaction, commandEmbed(title, describeLogChannels(channels, b.cfg.DefaultLogChannel), colors.Info, nil), true)

	case "set":
		event := optionString(args["event"])
		channel := args["channel"]
		if !history.IsEvent(event) || channel == nil || channel.Type != discordgo.ApplicationCommandOptionChannel {
			b.respondEmbed(session, interaction, commandEmbed(title, "Unknown event or channel.", colors.Error, nil), true)
			return
		}
		channelID := channel.ChannelValue(nil).ID
		if err := b.store.SetLogChannel(ctx, interaction.GuildID, event, channelID); err != nil {
			b.logger.Error("log channel update failed", zap.String("guild_id", interaction.GuildID), zap.String("event", event), zap.Error(err))
			b.respondEmbed(session, interaction, commandEmbed(title, "Could not save the configuration.", colors.Error, nil), true)
			return
		}
		b.history.Record(ctx, storage.LogEntry{
			GuildID:   interaction.GuildID,
			ChannelID: channelID,
			Event:     history.EventLogChannelUpdate,
			UserID:    interactionUserID(interaction),
			Details:   fmt.Sprintf("%s -> %s", event, channelID),
		})
		b.respondEmbed(session, interaction, commandEmbed(title, fmt.Sprintf("`%s` events now go to <#%s>.", event, channelID), colors.Info, nil), true)

	case "clear":
		event := optionString(args["event"])
		err := b.store.DeleteLogChannel(ctx, interaction.GuildID, event)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			b.respondEmbed(session, interaction, commandEmbed(title, fmt.Sprintf("`%s` was not configured.", event), colors.Info, nil), true)
			return
		case err != nil:
			b.logger.Error("log channel clear failed", zap.String("guild_id", interaction.GuildID), zap.String("event", event), zap.Error(err))
			b.respondEmbed(session, interaction, commandEmbed(title, "Could not save the configuration.", colors.Error, nil), true)
			return
		}
		b.history.Record(ctx, storage.LogEntry{
			GuildID: interaction.GuildID,
			Event:   history.EventLogChannelUpdate,
			UserID:  interactionUserID(interaction),
			Details: event + " cleared",
		})
		b.respondEmbed(session, interaction, commandEmbed(title, fmt.Sprintf("`%s` routing cleared.", event), colors.Info, nil), true)

	default:
		b.respondEmbed(session, interaction, commandEmbed(title, "Unknown subcommand.", colors.Error, nil), true)
	}
}

func (b *Bot) handleTranscriptsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	const title = "Transcripts"
	colors := b.cfg.Notifications.EmbedColors

	limit := 5
	for _, opt := range options {
		if opt.Name == "limit" && opt.Type == discordgo.ApplicationCommandOptionInteger {
			limit = int(opt.IntValue())
		}
	}
	limit = min(max(limit, 1), maxTranscriptListing)

	res, err := b.transcripts.List(ctx, storage.TranscriptFilter{GuildID: interaction.GuildID, ChannelID: interaction.ChannelID}, limit, 0)
	if err != nil {
		b.logger.Error("transcript listing failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, commandEmbed(title, "Could not load transcripts.", colors.Error, nil), true)
		return
	}
	if res.Count == 0 {
		b.respondEmbed(session, interaction, commandEmbed(title, "No transcripts for this channel.", colors.Info, nil), true)
		return
	}

	lines := make([]string, 0, res.Count)
	for _, entry := range res.Transcripts {
		line := fmt.Sprintf("<t:%d:R> · %s · by %s", entry.CapturedAt, plural(entry.MessageCount, "message"), entry.DeletedBy)
		if b.publicURL != "" {
			line += fmt.Sprintf(" · [open](%s)", utils.TranscriptURL(b.publicURL, entry.ID))
		}
		if entry.Error != "" {
			line += " · unreadable"
		}
		lines = append(lines, line)
	}
	b.respondEmbed(session, interaction, commandEmbed(title, strings.Join(lines, "\n"), colors.Info, nil), true)
}

func describeLogChannels(channels []storage.LogChannel, fallback string) string {
	if len(channels) == 0 {
		if fallback != "" {
			return fmt.Sprintf("Nothing configured; using the global default <#%s>.", fallback)
		}
		return "Nothing configured."
	}
	lines := make([]string, 0, len(channels))
	for _, lc := range channels {
		lines = append(lines, fmt.Sprintf("`%s` → <#%s>", lc.Event, lc.ChannelID))
	}
	return strings.Join(lines, "\n")
}

func optionString(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}
