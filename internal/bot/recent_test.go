package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestRecentMessagesTake(t *testing.T) {
	r := newRecentMessages(2)
	r.Add(&discordgo.Message{ID: "1", GuildID: "g", ChannelID: "c"})
	r.Add(&discordgo.Message{ID: "2", GuildID: "g", ChannelID: "c"})
	r.Add(&discordgo.Message{ID: "3", GuildID: "g", ChannelID: "c"})
	r.Add(&discordgo.Message{ID: "4", ChannelID: "dm"})

	found, missing := r.Take("c", []string{"1", "2", "3"})
	if len(found) != 2 || found[0].ID != "2" || found[1].ID != "3" {
		t.Fatalf("expected the two newest messages, got %+v", found)
	}
	if len(missing) != 1 || missing[0] != "1" {
		t.Fatalf("expected evicted id to be missing, got %v", missing)
	}

	found, missing = r.Take("c", []string{"2"})
	if len(found) != 0 || len(missing) != 1 {
		t.Fatalf("expected taken messages to be removed")
	}

	if found, _ := r.Take("dm", []string{"4"}); len(found) != 0 {
		t.Fatalf("expected messages without a guild to be ignored")
	}
}

func TestRecentMessagesDisabled(t *testing.T) {
	r := newRecentMessages(0)
	r.Add(&discordgo.Message{ID: "1", GuildID: "g", ChannelID: "c"})
	if found, missing := r.Take("c", []string{"1"}); len(found) != 0 || len(missing) != 1 {
		t.Fatalf("expected nothing tracked when disabled")
	}
}

func TestHighestRoleColor(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "a", Position: 1, Color: 0x111111},
		{ID: "b", Position: 5, Color: 0},
		{ID: "c", Position: 3, Color: 0x333333},
		nil,
	}
	if got := highestRoleColor(roles); got != 0x333333 {
		t.Fatalf("expected highest colored role, got %#x", got)
	}
	if got := highestRoleColor(nil); got != 0 {
		t.Fatalf("expected no color, got %#x", got)
	}
}

func TestStateDirectory(t *testing.T) {
	state := discordgo.NewState()
	if err := state.GuildAdd(&discordgo.Guild{ID: "g", Roles: []*discordgo.Role{
		{ID: "r1", Name: "mods", Position: 2, Color: 0x00ff00},
		{ID: "r2", Name: "members", Position: 1, Color: 0x0000ff},
	}}); err != nil {
		t.Fatalf("guild add: %v", err)
	}
	if err := state.ChannelAdd(&discordgo.Channel{ID: "c", GuildID: "g", Name: "general"}); err != nil {
		t.Fatalf("channel add: %v", err)
	}
	if err := state.MemberAdd(&discordgo.Member{GuildID: "g", User: &discordgo.User{ID: "u"}, Nick: "Nick", Roles: []string{"r1", "r2"}}); err != nil {
		t.Fatalf("member add: %v", err)
	}

	dir := &stateDirectory{state: state}
	member, ok := dir.Member("g", "u")
	if !ok || member.Nick != "Nick" {
		t.Fatalf("expected member lookup to succeed")
	}
	if got := dir.RoleColor("g", member); got != 0x00ff00 {
		t.Fatalf("expected mods color, got %#x", got)
	}
	if dir.RoleName("g", "r2") != "members" || dir.RoleName("g", "missing") != "" {
		t.Fatalf("unexpected role names")
	}
	if dir.ChannelName("c") != "general" || dir.ChannelName("x") != "" {
		t.Fatalf("unexpected channel names")
	}
	if _, ok := dir.Member("g", "nobody"); ok {
		t.Fatalf("expected unknown member to be missing")
	}
}

func TestRecentMessagesUpdate(t *testing.T) {
	r := newRecentMessages(10)
	author := &discordgo.User{ID: "u", Username: "alice"}
	r.Add(&discordgo.Message{ID: "500", GuildID: "g", ChannelID: "c", Content: "hello", Author: author})

	if !r.Update(&discordgo.Message{ID: "500", GuildID: "g", ChannelID: "c", Content: "hello", Author: author, Pinned: true}) {
		t.Fatalf("expected tracked message to be updated")
	}
	// Embed-only payloads have no author and leave the pin alone.
	r.Update(&discordgo.Message{ID: "500", GuildID: "g", ChannelID: "c", Embeds: []*discordgo.MessageEmbed{{Title: "preview"}}})

	if r.Update(&discordgo.Message{ID: "501", GuildID: "g", ChannelID: "c", Embeds: []*discordgo.MessageEmbed{{Title: "preview"}}}) {
		t.Fatalf("expected untracked message to be ignored")
	}

	found, missing := r.Take("c", []string{"500", "501"})
	if len(found) != 1 || !found[0].Pinned || found[0].Content != "hello" || len(found[0].Embeds) != 1 {
		t.Fatalf("unexpected tracked message: %+v", found)
	}
	if len(missing) != 1 || missing[0] != "501" {
		t.Fatalf("expected partial update not to be tracked, got %v", missing)
	}
}

func TestRecentMessagesReactions(t *testing.T) {
	r := newRecentMessages(10)
	r.Add(&discordgo.Message{ID: "1", GuildID: "g", ChannelID: "c"})

	thumbs := discordgo.Emoji{Name: "👍"}
	r.AddReaction("c", "1", thumbs, true)
	r.AddReaction("c", "1", thumbs, false)
	r.AddReaction("c", "missing", thumbs, false)
	r.RemoveReaction("c", "1", thumbs, true)

	found, _ := r.Take("c", []string{"1"})
	reactions := found[0].Reactions
	if len(reactions) != 1 || reactions[0].Count != 1 || reactions[0].Me {
		t.Fatalf("unexpected reactions: %+v", reactions)
	}

	r.Add(&discordgo.Message{ID: "2", GuildID: "g", ChannelID: "c"})
	r.AddReaction("c", "2", thumbs, false)
	r.ClearReactions("c", "2")
	found, _ = r.Take("c", []string{"2"})
	if len(found[0].Reactions) != 0 {
		t.Fatalf("expected reactions cleared, got %+v", found[0].Reactions)
	}
}
