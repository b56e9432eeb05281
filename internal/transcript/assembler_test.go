package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modlog/internal/storage"
)

type fakeDirectory struct {
	members  map[string]*discordgo.Member
	colors   map[string]int
	roles    map[string]string
	channels map[string]string
}

func (d fakeDirectory) Member(_ string, userID string) (*discordgo.Member, bool) {
	m, ok := d.members[userID]
	return m, ok
}

func (d fakeDirectory) RoleColor(_ string, member *discordgo.Member) int {
	if member == nil || member.User == nil {
		return 0
	}
	return d.colors[member.User.ID]
}

func (d fakeDirectory) RoleName(_ string, roleID string) string {
	return d.roles[roleID]
}

func (d fakeDirectory) ChannelName(channelID string) string {
	return d.channels[channelID]
}

func newTestAssembler(cache MessageCache, dir Directory) *Assembler {
	return NewAssembler(NewResolver(cache, zap.NewNop()), dir, 4, zap.NewNop())
}

func at(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func TestAssembleSortsByCreation(t *testing.T) {
	a := newTestAssembler(nil, nil)
	batch := []*discordgo.Message{
		{ID: "3", Timestamp: at(300), Author: &discordgo.User{ID: "u"}},
		{ID: "1", Timestamp: at(100), Author: &discordgo.User{ID: "u"}},
		{ID: "2", Timestamp: at(200), Author: &discordgo.User{ID: "u"}},
	}

	doc := a.Assemble(context.Background(), "t1", "g", "c", batch)
	if doc.ID != "t1" || doc.MessagesCount != 3 || len(doc.Messages) != 3 {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	want := []int64{100, 200, 300}
	for i, m := range doc.Messages {
		if m.CreatedTimestamp != want[i] {
			t.Fatalf("position %d: expected %d, got %d", i, want[i], m.CreatedTimestamp)
		}
	}
}

func TestAssembleBreaksTiesBySnowflake(t *testing.T) {
	a := newTestAssembler(nil, nil)
	batch := []*discordgo.Message{
		{ID: "1000", Timestamp: at(5)},
		{ID: "999", Timestamp: at(5)},
		{ID: "1001", Timestamp: at(5)},
	}

	doc := a.Assemble(context.Background(), "t", "g", "c", batch)
	got := []string{doc.Messages[0].MessageID, doc.Messages[1].MessageID, doc.Messages[2].MessageID}
	if got[0] != "999" || got[1] != "1000" || got[2] != "1001" {
		t.Fatalf("unexpected tie order: %v", got)
	}
}

func TestAssembleFallsBackToSnowflakeTime(t *testing.T) {
	a := newTestAssembler(nil, nil)
	// 175928847299117063 is the documented example snowflake.
	doc := a.Assemble(context.Background(), "t", "g", "c", []*discordgo.Message{{ID: "175928847299117063"}})

	ts, err := discordgo.SnowflakeTimestamp("175928847299117063")
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	if doc.Messages[0].CreatedTimestamp != ts.UnixMilli() {
		t.Fatalf("expected snowflake time %d, got %d", ts.UnixMilli(), doc.Messages[0].CreatedTimestamp)
	}
}

func TestAssembleResolvesAuthor(t *testing.T) {
	dir := fakeDirectory{
		members: map[string]*discordgo.Member{
			"u1": {User: &discordgo.User{ID: "u1", Username: "alice"}, Nick: "Ali"},
		},
		colors: map[string]int{"u1": 0x00ff00},
	}
	a := newTestAssembler(nil, dir)
	batch := []*discordgo.Message{
		{ID: "1", Timestamp: at(1), Author: &discordgo.User{ID: "u1", Username: "alice"}},
		{ID: "2", Timestamp: at(2), Author: &discordgo.User{ID: "u2", Username: "bob"}},
		{ID: "3", Timestamp: at(3)},
	}

	doc := a.Assemble(context.Background(), "t", "g", "c", batch)
	first, second, third := doc.Messages[0], doc.Messages[1], doc.Messages[2]

	if first.AuthorName != "Ali" || first.AuthorUserName != "alice" || first.UserRoleColor != "#00ff00" {
		t.Fatalf("unexpected member author: %+v", first)
	}
	if second.AuthorName != "bob" || second.UserRoleColor != "#000000" || second.UserAvatar == "" {
		t.Fatalf("unexpected plain author: %+v", second)
	}
	if third.AuthorName != "Unknown" || third.AuthorID != "" || third.UserAvatar != "" {
		t.Fatalf("unexpected missing author: %+v", third)
	}
}

func TestAssembleOmitsFalsyFields(t *testing.T) {
	edited := at(50)
	a := newTestAssembler(nil, nil)
	batch := []*discordgo.Message{
		{ID: "1", Timestamp: at(1), Content: "", Pinned: false, Embeds: []*discordgo.MessageEmbed{{}}},
		{ID: "2", Timestamp: at(2), Content: "hi", Pinned: true, EditedTimestamp: &edited},
	}

	doc := a.Assemble(context.Background(), "t", "g", "c", batch)
	plain, rich := doc.Messages[0], doc.Messages[1]

	if plain.Content != "" || plain.Pinned || plain.EditedTimestamp != 0 || plain.Embeds != nil || plain.Mentions != nil || plain.Reactions != nil || plain.Attachments != nil {
		t.Fatalf("expected bare message, got %+v", plain)
	}
	if rich.Content != "hi" || !rich.Pinned || rich.EditedTimestamp != 50 {
		t.Fatalf("expected populated message, got %+v", rich)
	}
}

func TestAssembleExtras(t *testing.T) {
	dir := fakeDirectory{
		roles:    map[string]string{"r1": "mods"},
		channels: map[string]string{"42": "general"},
	}
	a := newTestAssembler(nil, dir)
	msg := &discordgo.Message{
		ID:           "1",
		Timestamp:    at(1),
		Content:      "ping <#42> and <#42> and <#43>",
		Mentions:     []*discordgo.User{{ID: "u9", Username: "zed"}},
		MentionRoles: []string{"r1"},
		Reactions: []*discordgo.MessageReactions{
			{Count: 3, Me: true, Emoji: &discordgo.Emoji{Name: "🔥"}},
			{Count: 1, Emoji: &discordgo.Emoji{ID: "77", Name: "party", Animated: true}},
		},
		Embeds: []*discordgo.MessageEmbed{
			{Title: "Rules", Color: 0x123456},
			{},
		},
		Attachments: []*discordgo.MessageAttachment{{Filename: "a.txt", URL: "https://cdn/a.txt", Size: 12, ContentType: "text/plain"}},
	}

	doc := a.Assemble(context.Background(), "t", "g", "c", []*discordgo.Message{msg})
	m := doc.Messages[0]

	if len(m.Embeds) != 1 || m.Embeds[0].Title != "Rules" {
		t.Fatalf("unexpected embeds: %+v", m.Embeds)
	}
	if len(m.Reactions) != 2 || m.Reactions[0].Emoji != "🔥" || !m.Reactions[0].SelfReacted || m.Reactions[1].Emoji != "<a:party:77>" {
		t.Fatalf("unexpected reactions: %+v", m.Reactions)
	}
	if m.Mentions == nil {
		t.Fatalf("expected mentions")
	}
	if len(m.Mentions.Users) != 1 || m.Mentions.Users[0].Username != "zed" {
		t.Fatalf("unexpected user mentions: %+v", m.Mentions.Users)
	}
	if len(m.Mentions.Roles) != 1 || m.Mentions.Roles[0].Name != "mods" {
		t.Fatalf("unexpected role mentions: %+v", m.Mentions.Roles)
	}
	if len(m.Mentions.Channels) != 2 || m.Mentions.Channels[0].Name != "general" || m.Mentions.Channels[1].Name != "Unknown" {
		t.Fatalf("unexpected channel mentions: %+v", m.Mentions.Channels)
	}
	if len(m.Attachments) != 1 || *m.Attachments[0].Size != 12 || *m.Attachments[0].ContentType != "text/plain" {
		t.Fatalf("unexpected attachments: %+v", m.Attachments)
	}
}

func TestAssembleUsesCachedAttachments(t *testing.T) {
	cache := fakeCache{rows: map[string]storage.CachedMessage{
		"1": {MessageID: "1", Attachments: `[{"name":"old.png","url":"https://cdn/old.png"}]`},
	}}
	a := newTestAssembler(cache, nil)

	doc := a.Assemble(context.Background(), "t", "g", "c", []*discordgo.Message{{ID: "1", Timestamp: at(1)}})
	atts := doc.Messages[0].Attachments
	if len(atts) != 1 || atts[0].Name != "old.png" || atts[0].Size != nil || atts[0].ContentType != nil {
		t.Fatalf("unexpected cached attachments: %+v", atts)
	}
}

func TestAssembleCountSkipsNilEntries(t *testing.T) {
	a := newTestAssembler(nil, nil)
	batch := make([]*discordgo.Message, 0, 60)
	for i := 0; i < 50; i++ {
		batch = append(batch, &discordgo.Message{ID: "1", Timestamp: at(int64(50 - i))})
	}
	batch = append(batch, nil)

	doc := a.Assemble(context.Background(), "t", "g", "c", batch)
	if doc.MessagesCount != 50 || len(doc.Messages) != 50 {
		t.Fatalf("expected 50 messages, got count=%d len=%d", doc.MessagesCount, len(doc.Messages))
	}
	for i := 1; i < len(doc.Messages); i++ {
		if doc.Messages[i-1].CreatedTimestamp > doc.Messages[i].CreatedTimestamp {
			t.Fatalf("messages out of order at %d", i)
		}
	}
}
