package bot

import (
	"github.com/bwmarrin/discordgo"

	"modlog/internal/history"
)

func (b *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	manageGuild := int64(discordgo.PermissionManageServer)
	dm := false

	eventChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(history.Events))
	for _, event := range history.Events {
		eventChoices = append(eventChoices, &discordgo.ApplicationCommandOptionChoice{Name: event, Value: event})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "logchannel",
			Description:              "Configure where moderation logs are sent",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Show the configured log channels",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Send an event to a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "event",
							Description: "Event to route",
							Required:    true,
							Choices:     eventChoices,
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Destination channel",
							Required:     true,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Stop routing an event",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "event",
							Description: "Event to clear",
							Required:    true,
							Choices:     eventChoices,
						},
					},
				},
			},
		},
		{
			Name:                     "transcripts",
			Description:              "List recent bulk deletion transcripts for this channel",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many to show (1-10)",
					Required:    false,
				},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := b.commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
