package types

import "time"

// InboundMessage is a chat message that should trigger an agent run.
// The channel adapter fills it in; the agent only reads it.
type InboundMessage struct {
	ID        string
	Text      string
	Timestamp time.Time

	AuthorID   string
	AuthorName string

	ChannelID   string
	ChannelName string
	GuildID     string // empty for direct messages
	GuildName   string
}

// IsDirect returns true for direct (private) messages
func (m *InboundMessage) IsDirect() bool {
	return m.GuildID == ""
}
