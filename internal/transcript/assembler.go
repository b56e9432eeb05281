package transcript

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modlog/internal/utils"
)

const (
	unknownName  = "Unknown"
	defaultColor = "#000000"
)

// Directory answers guild lookups for the assembler. Implementations must
// be safe for concurrent use and never block on the network for long.
type Directory interface {
	Member(guildID, userID string) (*discordgo.Member, bool)
	RoleColor(guildID string, member *discordgo.Member) int
	RoleName(guildID, roleID string) string
	ChannelName(channelID string) string
}

type Assembler struct {
	resolver  *Resolver
	directory Directory
	workers   int
	logger    *zap.Logger
}

func NewAssembler(resolver *Resolver, directory Directory, workers int, logger *zap.Logger) *Assembler {
	if workers <= 0 {
		workers = 1
	}
	return &Assembler{resolver: resolver, directory: directory, workers: workers, logger: logger}
}

// Assemble converts a deleted batch into a Document. Messages are converted
// concurrently and sorted once every conversion has finished.
func (a *Assembler) Assemble(ctx context.Context, id, guildID, channelID string, batch []*discordgo.Message) Document {
	msgs := make([]*discordgo.Message, 0, len(batch))
	for _, m := range batch {
		if m != nil {
			msgs = append(msgs, m)
		}
	}

	out := make([]Message, len(msgs))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, m := range msgs {
		i, m := i, m
		g.Go(func() error {
			out[i] = a.convert(ctx, guildID, m)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedTimestamp != out[j].CreatedTimestamp {
			return out[i].CreatedTimestamp < out[j].CreatedTimestamp
		}
		return snowflakeLess(out[i].MessageID, out[j].MessageID)
	})

	a.logger.Debug("transcript assembled",
		zap.String("transcript_id", id),
		zap.String("guild_id", guildID),
		zap.String("channel_id", channelID),
		zap.Int("messages", len(out)),
	)

	return Document{ID: id, MessagesCount: len(msgs), Messages: out}
}

func (a *Assembler) convert(ctx context.Context, guildID string, m *discordgo.Message) Message {
	msg := Message{
		MessageID:        m.ID,
		AuthorName:       unknownName,
		AuthorUserName:   unknownName,
		CreatedTimestamp: createdAt(m),
		Content:          m.Content,
		UserRoleColor:    defaultColor,
		Pinned:           m.Pinned,
	}
	if m.EditedTimestamp != nil && !m.EditedTimestamp.IsZero() {
		msg.EditedTimestamp = m.EditedTimestamp.UnixMilli()
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorUserName = m.Author.Username
		msg.AuthorName = m.Author.Username
		if msg.AuthorName == "" {
			msg.AuthorName = unknownName
		}
		msg.UserAvatar = m.Author.AvatarURL("")

		member := a.member(guildID, m)
		if member != nil {
			if member.Nick != "" {
				msg.AuthorName = member.Nick
			}
			if member.Avatar != "" {
				withGuild := *member
				withGuild.GuildID = guildID
				if withGuild.User == nil {
					withGuild.User = m.Author
				}
				msg.UserAvatar = withGuild.AvatarURL("")
			}
			if a.directory != nil {
				if color := a.directory.RoleColor(guildID, member); color != 0 {
					msg.UserRoleColor = fmt.Sprintf("#%06x", color)
				}
			}
		}
	}

	msg.Attachments = a.resolver.Resolve(ctx, m.ID, m.Attachments)
	msg.Embeds = embeds(m.Embeds)
	msg.Reactions = reactions(m.Reactions)
	if mentions := a.mentions(guildID, m); !mentions.IsEmpty() {
		msg.Mentions = &mentions
	}
	return msg
}

func (a *Assembler) member(guildID string, m *discordgo.Message) *discordgo.Member {
	if a.directory != nil {
		if member, ok := a.directory.Member(guildID, m.Author.ID); ok && member != nil {
			return member
		}
	}
	return m.Member
}

func (a *Assembler) mentions(guildID string, m *discordgo.Message) Mentions {
	var out Mentions
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		out.Users = append(out.Users, UserMention{ID: u.ID, Username: u.Username})
	}
	for _, roleID := range m.MentionRoles {
		name := ""
		if a.directory != nil {
			name = a.directory.RoleName(guildID, roleID)
		}
		if name == "" {
			name = unknownName
		}
		out.Roles = append(out.Roles, RoleMention{ID: roleID, Name: name})
	}

	seen := make(map[string]bool)
	addChannel := func(channelID, name string) {
		if channelID == "" || seen[channelID] {
			return
		}
		seen[channelID] = true
		if name == "" && a.directory != nil {
			name = a.directory.ChannelName(channelID)
		}
		if name == "" {
			name = unknownName
		}
		out.Channels = append(out.Channels, ChannelMention{ID: channelID, Name: name})
	}
	for _, ch := range m.MentionChannels {
		if ch != nil {
			addChannel(ch.ID, ch.Name)
		}
	}
	for _, channelID := range utils.ChannelRefs(m.Content) {
		addChannel(channelID, "")
	}
	return out
}

func embeds(src []*discordgo.MessageEmbed) []Embed {
	var out []Embed
	for _, e := range src {
		if e == nil {
			continue
		}
		embed := Embed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Color:       e.Color,
			Timestamp:   e.Timestamp,
		}
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			embed.Fields = append(embed.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if embed.IsEmpty() {
			continue
		}
		out = append(out, embed)
	}
	return out
}

func reactions(src []*discordgo.MessageReactions) []Reaction {
	var out []Reaction
	for _, r := range src {
		if r == nil || r.Emoji == nil {
			continue
		}
		out = append(out, Reaction{Emoji: r.Emoji.MessageFormat(), Count: r.Count, SelfReacted: r.Me})
	}
	return out
}

func createdAt(m *discordgo.Message) int64 {
	if !m.Timestamp.IsZero() {
		return m.Timestamp.UnixMilli()
	}
	if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil {
		return ts.UnixMilli()
	}
	return 0
}

// snowflakeLess orders decimal snowflakes numerically without parsing them.
func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
