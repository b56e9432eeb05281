// Package transcript captures bulk message deletions as compact, immutable
// documents and serves them back for review.
package transcript

// Document is the decoded form of a stored transcript. Messages are ordered
// oldest first.
type Document struct {
	ID            string    `json:"id"`
	MessagesCount int       `json:"messagesCount"`
	Messages      []Message `json:"messages"`
}

// Message is one deleted message. Optional fields are omitted when falsy so
// that false flags and empty strings never reach the payload.
type Message struct {
	MessageID        string       `json:"messageId"`
	AuthorID         string       `json:"authorId"`
	AuthorName       string       `json:"authorName"`
	AuthorUserName   string       `json:"authorUserName"`
	CreatedTimestamp int64        `json:"createdTimestamp"`
	EditedTimestamp  int64        `json:"editedTimestamp,omitempty"`
	Content          string       `json:"content,omitempty"`
	UserAvatar       string       `json:"userAvatar"`
	UserRoleColor    string       `json:"userRoleColor"`
	Pinned           bool         `json:"pinned,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Embeds           []Embed      `json:"embeds,omitempty"`
	Reactions        []Reaction   `json:"reactions,omitempty"`
	Mentions         *Mentions    `json:"mentions,omitempty"`
}

// Attachment keeps Size and ContentType as pointers: an unknown value is
// serialized as null rather than dropped.
type Attachment struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Size        *int    `json:"size"`
	ContentType *string `json:"contentType"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

func (e Embed) IsEmpty() bool {
	return e.Title == "" && e.Description == "" && e.URL == "" && e.Color == 0 && e.Timestamp == "" && len(e.Fields) == 0
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Reaction struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	SelfReacted bool   `json:"selfReacted"`
}

type Mentions struct {
	Users    []UserMention    `json:"users,omitempty"`
	Roles    []RoleMention    `json:"roles,omitempty"`
	Channels []ChannelMention `json:"channels,omitempty"`
}

func (m Mentions) IsEmpty() bool {
	return len(m.Users) == 0 && len(m.Roles) == 0 && len(m.Channels) == 0
}

type UserMention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type RoleMention struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChannelMention struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
