package source

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

// aroundLimit is the page size used when walking outward from a linked
// message.
const aroundLimit = 100

var linkRe = regexp.MustCompile(`https?://(?:[a-z]+\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)`)

// ParseLink extracts the first message link from text.
func ParseLink(text string) (MessageLink, bool) {
	m := linkRe.FindStringSubmatch(text)
	if m == nil {
		return MessageLink{}, false
	}
	return MessageLink{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, true
}

// Session is the slice of the Discord API the adapter needs.
// *discordgo.Session satisfies it.
type Session interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord reads channel history through a bot session. Discord returns
// pages newest-first; the adapter flips them to the oldest-first order
// the rest of the system expects.
type Discord struct {
	session Session
}

func NewDiscord(session Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) FetchPage(ctx context.Context, channelID, beforeID string, limit int) ([]Message, bool, error) {
	raw, err := d.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return convert(raw), len(raw) < limit, nil
}

// FetchAround collects every message within window of the linked one,
// paging outward in both directions until a message outside the window
// is seen or history runs out. A busy channel can hold more than one
// page on either side of the anchor.
func (d *Discord) FetchAround(ctx context.Context, channelID, messageID string, window time.Duration) ([]Message, error) {
	center, err := d.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := convert([]*discordgo.Message{center})

	beforeID := messageID
	for {
		raw, err := d.session.ChannelMessages(channelID, aroundLimit, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		batch := convert(raw)
		if len(batch) == 0 {
			break
		}
		crossed := false
		for i := len(batch) - 1; i >= 0; i-- {
			if center.Timestamp.Sub(batch[i].Timestamp) > window {
				crossed = true
				break
			}
			out = append(out, batch[i])
		}
		if crossed || len(raw) < aroundLimit {
			break
		}
		beforeID = batch[0].ID
	}

	afterID := messageID
	for {
		raw, err := d.session.ChannelMessages(channelID, aroundLimit, "", afterID, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		batch := convert(raw)
		if len(batch) == 0 {
			break
		}
		crossed := false
		for _, m := range batch {
			if m.Timestamp.Sub(center.Timestamp) > window {
				crossed = true
				break
			}
			out = append(out, m)
		}
		if crossed || len(raw) < aroundLimit {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// convert maps raw messages to the transport-neutral form, oldest-first.
func convert(raw []*discordgo.Message) []Message {
	out := make([]Message, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		msg := Message{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Author:    displayName(m.Author),
		}
		for _, a := range m.Attachments {
			msg.Attachments = append(msg.Attachments, Attachment{ID: a.ID, URL: a.URL})
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
