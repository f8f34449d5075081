package tools

import (
	"context"
	"time"
)

// Container is a server (guild) and the channels the bot can see in it
type Container struct {
	ID        string
	Name      string
	Locations []Location
}

// Location is a text channel
type Location struct {
	ID   string
	Name string
}

// Item is one message read from a channel
type Item struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Attachments []string // URLs
	IsBot       bool
}

// Gateway is the narrow slice of the chat platform the executor uses.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// Containers returns every server with its text channels, in platform order.
	Containers(ctx context.Context) ([]Container, error)

	// FetchRecent returns up to count messages from locationID, newest first.
	// A non-empty beforeID pages back from that message.
	FetchRecent(ctx context.Context, locationID string, count int, beforeID string) ([]Item, error)

	// Deliver posts text to locationID and returns the new message ID.
	Deliver(ctx context.Context, locationID, text string) (string, error)
}
