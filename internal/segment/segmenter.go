// Package segment turns an ordered message stream into materials using
// a time-gap rule: messages separated by a long silence belong to
// different materials, messages close in time to the same one.
package segment

import (
	"regexp"
	"time"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
	"github.com/JacekAdamczyk/paragonBot/internal/source"
)

// DefaultGap is the silence that closes a material and opens a new one.
const DefaultGap = 5 * time.Minute

// urlRe matches scheme://non-whitespace links inside message content.
var urlRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s]+`)

// Segmenter accumulates messages into an open material and seals it
// whenever the gap to the previous processed message exceeds the
// threshold. It carries only the state needed to pause and resume:
// the open material and the last seen timestamp; deduplication lives in
// the caller-provided ledger set.
type Segmenter struct {
	channelID string
	gap       time.Duration

	open     *models.Material
	lastSeen time.Time
	hasLast  bool

	sealed []*models.Material
}

// New creates a segmenter for a channel starting from a blank state.
func New(channelID string, gap time.Duration) *Segmenter {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Segmenter{
		channelID: channelID,
		gap:       gap,
		open:      models.NewMaterial(channelID),
	}
}

// Resume creates a segmenter continuing from a previous run's open
// material and last seen timestamp. open may be nil to resume with only
// the timing state.
func Resume(channelID string, gap time.Duration, open *models.Material, lastSeen time.Time) *Segmenter {
	s := New(channelID, gap)
	if open != nil {
		s.open = open
	}
	if !lastSeen.IsZero() {
		s.lastSeen = lastSeen
		s.hasLast = true
	}
	return s
}

// Process absorbs a batch of messages (oldest-first). Messages whose id
// is already in the ledger are skipped without affecting timing state.
// Every id absorbed here is added to the ledger set and returned so the
// caller can persist the additions with the page.
func (s *Segmenter) Process(msgs []source.Message, ledger map[string]struct{}) []string {
	var added []string

	for _, msg := range msgs {
		if _, done := ledger[msg.ID]; done {
			continue
		}

		if s.isBoundary(msg.Timestamp) && len(s.open.Messages) > 0 {
			s.sealed = append(s.sealed, s.open)
			s.open = models.NewMaterial(s.channelID)
		}

		if msg.Content != "" {
			s.open.Messages = append(s.open.Messages, models.Message{
				ID:        msg.ID,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
			})
			s.open.Links = append(s.open.Links, urlRe.FindAllString(msg.Content, -1)...)
			ledger[msg.ID] = struct{}{}
			added = append(added, msg.ID)
		}

		// Attachments become their own entries under the parent's
		// timestamp; they never drive the boundary rule.
		for _, att := range msg.Attachments {
			s.open.Messages = append(s.open.Messages, models.Message{
				ID:        att.ID,
				Content:   att.URL,
				Timestamp: msg.Timestamp,
			})
			ledger[att.ID] = struct{}{}
			added = append(added, att.ID)
		}

		// Last writer wins; a multi-author material records the final
		// author only.
		if msg.Author != "" {
			s.open.Author = msg.Author
		}

		s.lastSeen = msg.Timestamp
		s.hasLast = true
	}

	return added
}

func (s *Segmenter) isBoundary(ts time.Time) bool {
	if !s.hasLast {
		return true
	}
	return ts.Sub(s.lastSeen) > s.gap
}

// Finish seals the open material if it is non-empty. Call once when the
// source signals end-of-stream.
func (s *Segmenter) Finish() {
	if len(s.open.Messages) > 0 {
		s.sealed = append(s.sealed, s.open)
		s.open = models.NewMaterial(s.channelID)
	}
}

// Materials returns the materials sealed so far, oldest first.
func (s *Segmenter) Materials() []*models.Material {
	return s.sealed
}

// Open returns the still-accumulating material, for persisting resume
// state. Empty materials are never sealed or stored.
func (s *Segmenter) Open() *models.Material {
	return s.open
}

// LastSeen returns the timestamp of the last processed message and
// whether any message has been processed yet.
func (s *Segmenter) LastSeen() (time.Time, bool) {
	return s.lastSeen, s.hasLast
}
