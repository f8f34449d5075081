package discord

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
	"github.com/roelfdiedericks/discordclaw/internal/tools"
)

// session is the part of *discordgo.Session the directory uses
type session interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// Directory exposes a Discord session as a tools.Gateway
type Directory struct {
	api   session
	state *discordgo.State
}

var _ tools.Gateway = (*Directory)(nil)

// NewDirectory wraps an open session
func NewDirectory(s *discordgo.Session) *Directory {
	return &Directory{api: s, state: s.State}
}

// Containers lists guilds from the state cache with their text channels
// sorted by position. Channels missing from the cache are fetched over REST.
func (d *Directory) Containers(ctx context.Context) ([]tools.Container, error) {
	if d.state == nil {
		return nil, fmt.Errorf("session state is not available")
	}

	d.state.RLock()
	guilds := make([]*discordgo.Guild, len(d.state.Guilds))
	copy(guilds, d.state.Guilds)
	d.state.RUnlock()

	out := make([]tools.Container, 0, len(guilds))
	for _, g := range guilds {
		channels := g.Channels
		if len(channels) == 0 {
			fetched, err := d.api.GuildChannels(g.ID, discordgo.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("fetching channels of %s: %w", g.Name, err)
			}
			L_debug("discord: fetched guild channels", "guild", g.ID, "count", len(fetched))
			channels = fetched
		}
		out = append(out, tools.Container{
			ID:        g.ID,
			Name:      g.Name,
			Locations: textLocations(channels),
		})
	}
	return out, nil
}

// textLocations keeps text-like channels ordered by position, then ID
func textLocations(channels []*discordgo.Channel) []tools.Location {
	var text []*discordgo.Channel
	for _, c := range channels {
		if c == nil {
			continue
		}
		switch c.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			text = append(text, c)
		}
	}
	sort.SliceStable(text, func(i, j int) bool {
		if text[i].Position != text[j].Position {
			return text[i].Position < text[j].Position
		}
		return text[i].ID < text[j].ID
	})

	locs := make([]tools.Location, len(text))
	for i, c := range text {
		locs[i] = tools.Location{ID: c.ID, Name: c.Name}
	}
	return locs
}

// FetchRecent returns up to count messages, newest first as Discord sends them
func (d *Directory) FetchRecent(ctx context.Context, locationID string, count int, beforeID string) ([]tools.Item, error) {
	msgs, err := d.api.ChannelMessages(locationID, count, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	items := make([]tools.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toItem(m))
	}
	return items, nil
}

func toItem(m *discordgo.Message) tools.Item {
	it := tools.Item{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		it.AuthorID = m.Author.ID
		it.AuthorName = displayName(m.Author)
		it.IsBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		if a != nil && a.URL != "" {
			it.Attachments = append(it.Attachments, a.URL)
		}
	}
	return it
}

// displayName prefers the global display name over the username
func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Deliver posts text verbatim and returns the new message ID
func (d *Directory) Deliver(ctx context.Context, locationID, text string) (string, error) {
	msg, err := d.api.ChannelMessageSend(locationID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// ShowActivityIndicator shows "bot is typing" in the channel for a few seconds
func (d *Directory) ShowActivityIndicator(ctx context.Context, locationID string) {
	if err := d.api.ChannelTyping(locationID, discordgo.WithContext(ctx)); err != nil {
		L_trace("discord: typing indicator failed", "channel", locationID, "error", err)
	}
}
