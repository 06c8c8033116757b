// Package source abstracts the chat platform a channel's history is
// read from. The rest of the system only sees ordered pages of messages.
package source

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the channel or its history could not be
// fetched. Ingestion aborts the run and keeps the last committed cursor.
var ErrUnavailable = errors.New("message source unavailable")

// Attachment is a file attached to a message. Attachments carry their
// own source-assigned id so they can be ledgered independently.
type Attachment struct {
	ID  string
	URL string
}

// Message is a single chat event as delivered by the source.
type Message struct {
	ID          string
	Content     string
	Timestamp   time.Time
	Author      string // display name of the sender
	Attachments []Attachment
}

// MessageLink identifies one message within a guild/channel.
type MessageLink struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Source is a paginated, reverse-chronological view of a channel.
// Implementations must return each page oldest-first regardless of the
// platform's native ordering.
type Source interface {
	// FetchPage returns up to limit messages strictly older than
	// beforeID (all newest when beforeID is empty), oldest-first, and
	// whether the start of the channel has been reached.
	FetchPage(ctx context.Context, channelID, beforeID string, limit int) ([]Message, bool, error)

	// FetchAround returns the messages within the window around the
	// given message (the message itself included), oldest-first.
	FetchAround(ctx context.Context, channelID, messageID string, window time.Duration) ([]Message, error)
}
