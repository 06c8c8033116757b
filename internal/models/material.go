// Package models defines the persisted domain types.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message absorbed into a material.
// Attachment-only messages are stored as one entry per attachment with
// the attachment URL as content.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Material is a bounded unit of community content: a contiguous run of
// messages from one channel, separated from its neighbours by silence.
// Summary, description and keywords are filled in by the enricher.
type Material struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Messages    []Message `json:"messages"`
	Links       []string  `json:"links"`
	Author      string    `json:"author"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Created     time.Time `json:"created,omitempty"`
}

// NewMaterial returns an empty material for the given channel with a
// freshly assigned id.
func NewMaterial(channelID string) *Material {
	return &Material{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Messages:  []Message{},
		Links:     []string{},
		Keywords:  []string{},
	}
}

// ContentText joins all message contents with a single space, in stored
// order. This is the text the enricher operates on.
func (m *Material) ContentText() string {
	parts := make([]string, len(m.Messages))
	for i, msg := range m.Messages {
		parts[i] = msg.Content
	}
	return strings.Join(parts, " ")
}

// Document is the text the material's embedding is computed from.
func (m *Material) Document() string {
	return m.Summary + " " + m.ContentText()
}

// FirstMessageID returns the id of the oldest message, used to build the
// deep link back into the channel. Empty for an empty material.
func (m *Material) FirstMessageID() string {
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[0].ID
}

// EmbeddingRecord maps a material to its embedding vector. At most one
// record exists per material, and every vector in the index has the same
// dimension.
type EmbeddingRecord struct {
	MaterialID string    `json:"material_id"`
	Vector     []float32 `json:"vector"`
}

// ChannelCursor remembers the last processed message id for a channel so
// ingestion can resume without rescanning history.
type ChannelCursor struct {
	ChannelID     string `json:"channel_id"`
	LastMessageID string `json:"last_message_id"`
}
