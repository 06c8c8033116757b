// Package bot is the Discord command surface: it routes !-prefixed
// messages to the search and material-management services and renders
// their outcomes as replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/JacekAdamczyk/paragonBot/internal/db"
	"github.com/JacekAdamczyk/paragonBot/internal/ingest"
	"github.com/JacekAdamczyk/paragonBot/internal/models"
	"github.com/JacekAdamczyk/paragonBot/internal/search"
	"github.com/JacekAdamczyk/paragonBot/internal/source"
)

const (
	noPermissionReply  = "You do not have permission to use this command."
	internalErrorReply = "Something went wrong, please try again later."
	notFoundReply      = "Material not found."
	searchIntroReply   = "Here are some materials I think you might find helpful:\n"
)

// Searcher runs a query and renders the reply. *search.Retriever
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, userID, query string) (*search.Result, error)
}

// Materials is the lifecycle surface behind the admin commands.
// *ingest.Service satisfies it.
type Materials interface {
	ProcessLink(ctx context.Context, link source.MessageLink) (*ingest.RunResult, error)
	MaterialByMessage(ctx context.Context, messageID string) (*models.Material, error)
	Edit(ctx context.Context, id, field, value string) (*models.Material, error)
	Delete(ctx context.Context, id string) error
}

// Feedback records ratings on earlier search replies. *db.Client
// satisfies it.
type Feedback interface {
	RateLatestFeedback(ctx context.Context, userID string, rating models.Rating, detail string) (*models.FeedbackEntry, error)
}

// Bot routes commands. All state is read-only after construction, so a
// single instance serves concurrent messages.
type Bot struct {
	searcher  Searcher
	materials Materials
	feedback  Feedback
	admins    map[string]struct{}
}

func New(searcher Searcher, materials Materials, feedback Feedback, adminIDs []string) *Bot {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{searcher: searcher, materials: materials, feedback: feedback, admins: admins}
}

// Run attaches the bot to the session and serves until the context is
// cancelled.
func (b *Bot) Run(ctx context.Context, session *discordgo.Session) error {
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	remove := session.AddHandler(b.onMessageCreate)
	defer remove()

	if err := session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	slog.Info("bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	return session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	reply := b.HandleCommand(context.Background(), m.Author.ID, m.Content)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		slog.Error("sending reply failed", "channel", m.ChannelID, "error", err)
	}
}

// HandleCommand dispatches one message. The empty string means the
// message was not a command and no reply should be sent.
func (b *Bot) HandleCommand(ctx context.Context, userID, content string) string {
	args := strings.Fields(content)
	if len(args) == 0 {
		return ""
	}
	command := strings.ToLower(args[0])
	args = args[1:]

	switch command {
	case "!bot":
		return b.handleSearch(ctx, userID, args)
	case "!add":
		return b.requireAdmin(userID, func() string { return b.handleAdd(ctx, args) })
	case "!edit":
		return b.requireAdmin(userID, func() string { return b.handleEdit(ctx, args) })
	case "!view":
		return b.requireAdmin(userID, func() string { return b.handleView(ctx, args) })
	case "!delete":
		return b.requireAdmin(userID, func() string { return b.handleDelete(ctx, args) })
	case "!feedback":
		return b.handleFeedback(ctx, userID, args)
	case "!help":
		return helpText
	case "!admin":
		return b.requireAdmin(userID, func() string { return helpAdminText })
	default:
		return ""
	}
}

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) requireAdmin(userID string, handler func() string) string {
	if !b.isAdmin(userID) {
		return noPermissionReply
	}
	return handler()
}

func (b *Bot) handleSearch(ctx context.Context, userID string, args []string) string {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return "Please provide a search query."
	}

	slog.Info("search command", "user", userID, "query", query)
	res, err := b.searcher.Search(ctx, userID, query)
	if err != nil {
		slog.Error("search failed", "user", userID, "error", err)
		return internalErrorReply
	}
	if len(res.Materials) == 0 {
		return res.Text
	}
	// The intro line counts against the platform limit too.
	return search.Truncate(searchIntroReply+res.Text, search.ResponseCharBudget)
}

func (b *Bot) handleAdd(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Please provide a valid message link."
	}
	link, ok := source.ParseLink(args[0])
	if !ok {
		return "Please provide a valid message link."
	}

	slog.Info("add command", "channel", link.ChannelID, "message", link.MessageID)
	res, err := b.materials.ProcessLink(ctx, link)
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		return "That channel is already being processed, try again in a moment."
	case errors.Is(err, source.ErrUnavailable):
		return "I could not read that message, check the link and my channel access."
	case err != nil:
		slog.Error("add failed", "message", link.MessageID, "error", err)
		return internalErrorReply
	}
	if res.Materials == 0 {
		return "Those messages are already part of existing material."
	}
	return "New material processed and added."
}

func (b *Bot) handleEdit(ctx context.Context, args []string) string {
	if len(args) < 3 {
		return "Please provide a valid material ID, field, and new value."
	}
	id, field := args[0], strings.ToLower(args[1])
	value := strings.Join(args[2:], " ")

	m, err := b.materials.Edit(ctx, id, field, value)
	switch {
	case errors.Is(err, ingest.ErrInvalidField):
		return "That field cannot be edited. Editable fields: summary, description, keywords."
	case errors.Is(err, db.ErrNotFound):
		return notFoundReply
	case err != nil:
		slog.Error("edit failed", "material", id, "error", err)
		return internalErrorReply
	}
	return fmt.Sprintf("Material %s updated.\n%s", m.ID, renderMaterial(m))
}

func (b *Bot) handleView(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Please provide a valid message link."
	}
	link, ok := source.ParseLink(args[0])
	if !ok {
		return "Please provide a valid message link."
	}

	m, err := b.materials.MaterialByMessage(ctx, link.MessageID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return notFoundReply
	case err != nil:
		slog.Error("view failed", "message", link.MessageID, "error", err)
		return internalErrorReply
	}
	return renderMaterial(m)
}

func (b *Bot) handleDelete(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Please provide a valid material ID."
	}
	id := args[0]

	err := b.materials.Delete(ctx, id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return notFoundReply
	case err != nil:
		slog.Error("delete failed", "material", id, "error", err)
		return internalErrorReply
	}
	slog.Info("material deleted", "material", id)
	return "Material deleted."
}

func (b *Bot) handleFeedback(ctx context.Context, userID string, args []string) string {
	if len(args) == 0 {
		return "Please answer with `!feedback yes` or `!feedback no [details]`."
	}

	var rating models.Rating
	switch strings.ToLower(args[0]) {
	case "yes":
		rating = models.RatingYes
	case "no":
		rating = models.RatingNo
	default:
		return "Please answer with `!feedback yes` or `!feedback no [details]`."
	}
	detail := strings.Join(args[1:], " ")

	_, err := b.feedback.RateLatestFeedback(ctx, userID, rating, detail)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return "You have no recent search to rate."
	case err != nil:
		slog.Error("feedback failed", "user", userID, "error", err)
		return internalErrorReply
	}
	return "Thanks for the feedback!"
}

// renderMaterial is the admin-facing detail view.
func renderMaterial(m *models.Material) string {
	return fmt.Sprintf("ID: %s\nSummary: %s\nDescription: %s\nKeywords: %s\nMessages: %s\nAuthor: %s",
		m.ID, m.Summary, m.Description, strings.Join(m.Keywords, ", "), m.ContentText(), m.Author)
}
