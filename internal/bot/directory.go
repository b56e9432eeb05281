package bot

import (
	"github.com/bwmarrin/discordgo"
)

// stateDirectory answers assembler lookups from the gateway state only, so
// a large purge never fans out into REST calls.
type stateDirectory struct {
	state *discordgo.State
}

func (d *stateDirectory) Member(guildID, userID string) (*discordgo.Member, bool) {
	member, err := d.state.Member(guildID, userID)
	if err != nil || member == nil {
		return nil, false
	}
	return member, true
}

func (d *stateDirectory) RoleColor(guildID string, member *discordgo.Member) int {
	if member == nil {
		return 0
	}
	roles := make([]*discordgo.Role, 0, len(member.Roles))
	for _, roleID := range member.Roles {
		if role, err := d.state.Role(guildID, roleID); err == nil && role != nil {
			roles = append(roles, role)
		}
	}
	return highestRoleColor(roles)
}

func (d *stateDirectory) RoleName(guildID, roleID string) string {
	role, err := d.state.Role(guildID, roleID)
	if err != nil || role == nil {
		return ""
	}
	return role.Name
}

func (d *stateDirectory) ChannelName(channelID string) string {
	channel, err := d.state.Channel(channelID)
	if err != nil || channel == nil {
		return ""
	}
	return channel.Name
}

// highestRoleColor returns the color of the highest positioned role that has
// one, matching how clients color a member's name.
func highestRoleColor(roles []*discordgo.Role) int {
	color := 0
	position := -1
	for _, role := range roles {
		if role == nil || role.Color == 0 {
			continue
		}
		if role.Position > position {
			position = role.Position
			color = role.Color
		}
	}
	return color
}
