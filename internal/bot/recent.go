package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// recentMessages keeps the last N full messages per channel in a private
// discordgo.State so bulk deletions can still be rebuilt with authors,
// embeds and reactions.
type recentMessages struct {
	mu    sync.Mutex
	state *discordgo.State
}

func newRecentMessages(perChannel int) *recentMessages {
	state := discordgo.NewState()
	state.MaxMessageCount = perChannel
	return &recentMessages{state: state}
}

func (r *recentMessages) Add(m *discordgo.Message) {
	if r.state.MaxMessageCount <= 0 || m == nil || m.ChannelID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.state.Channel(m.ChannelID); err != nil {
		if m.GuildID == "" {
			return
		}
		if _, err := r.state.Guild(m.GuildID); err != nil {
			_ = r.state.GuildAdd(&discordgo.Guild{ID: m.GuildID})
		}
		_ = r.state.ChannelAdd(&discordgo.Channel{ID: m.ChannelID, GuildID: m.GuildID})
	}
	_ = r.state.MessageAdd(m)
}

// Update merges a MESSAGE_UPDATE into an already tracked message and
// reports whether one was found. Untracked ids are ignored: update payloads
// may be partial and must not shadow the message cache.
func (r *recentMessages) Update(m *discordgo.Message) bool {
	if m == nil || m.ChannelID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.state.Message(m.ChannelID, m.ID); err != nil {
		return false
	}
	_ = r.state.MessageAdd(m)

	// MessageAdd does not merge pins. Only full payloads carry an author, and
	// only those have a meaningful pinned flag.
	tracked, err := r.state.Message(m.ChannelID, m.ID)
	if err == nil && m.Author != nil {
		tracked.Pinned = m.Pinned
	}
	return true
}

// AddReaction counts one more reaction with emoji on a tracked message.
func (r *recentMessages) AddReaction(channelID, messageID string, emoji discordgo.Emoji, self bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, err := r.state.Message(channelID, messageID)
	if err != nil {
		return
	}
	for _, reaction := range tracked.Reactions {
		if reaction != nil && sameEmoji(reaction.Emoji, emoji) {
			reaction.Count++
			reaction.Me = reaction.Me || self
			return
		}
	}
	e := emoji
	tracked.Reactions = append(tracked.Reactions, &discordgo.MessageReactions{Count: 1, Me: self, Emoji: &e})
}

// RemoveReaction undoes AddReaction, dropping the entry at zero.
func (r *recentMessages) RemoveReaction(channelID, messageID string, emoji discordgo.Emoji, self bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, err := r.state.Message(channelID, messageID)
	if err != nil {
		return
	}
	for i, reaction := range tracked.Reactions {
		if reaction == nil || !sameEmoji(reaction.Emoji, emoji) {
			continue
		}
		reaction.Count--
		if self {
			reaction.Me = false
		}
		if reaction.Count <= 0 {
			tracked.Reactions = append(tracked.Reactions[:i], tracked.Reactions[i+1:]...)
		}
		return
	}
}

func (r *recentMessages) ClearReactions(channelID, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tracked, err := r.state.Message(channelID, messageID); err == nil {
		tracked.Reactions = nil
	}
}

func sameEmoji(a *discordgo.Emoji, b discordgo.Emoji) bool {
	if a == nil {
		return false
	}
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Name == b.Name
}

// Take removes and returns the tracked messages among ids. Ids that were
// not tracked are returned in missing, preserving input order.
func (r *recentMessages) Take(channelID string, ids []string) (found []*discordgo.Message, missing []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		m, err := r.state.Message(channelID, id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		found = append(found, m)
		_ = r.state.MessageRemove(&discordgo.Message{ID: id, ChannelID: channelID})
	}
	return found, missing
}
