package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JacekAdamczyk/paragonBot/internal/db"
	"github.com/JacekAdamczyk/paragonBot/internal/ingest"
	"github.com/JacekAdamczyk/paragonBot/internal/models"
	"github.com/JacekAdamczyk/paragonBot/internal/search"
	"github.com/JacekAdamczyk/paragonBot/internal/source"
)

type fakeSearcher struct {
	lastUser  string
	lastQuery string
	result    *search.Result
	err       error
}

func (f *fakeSearcher) Search(ctx context.Context, userID, query string) (*search.Result, error) {
	f.lastUser, f.lastQuery = userID, query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeMaterials struct {
	lastLink    source.MessageLink
	linkResult  *ingest.RunResult
	linkErr     error
	material    *models.Material
	materialErr error
	editErr     error
	deleteErr   error
	deleted     []string
}

func (f *fakeMaterials) ProcessLink(ctx context.Context, link source.MessageLink) (*ingest.RunResult, error) {
	f.lastLink = link
	return f.linkResult, f.linkErr
}

func (f *fakeMaterials) MaterialByMessage(ctx context.Context, messageID string) (*models.Material, error) {
	return f.material, f.materialErr
}

func (f *fakeMaterials) Edit(ctx context.Context, id, field, value string) (*models.Material, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	return f.material, nil
}

func (f *fakeMaterials) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeFeedback struct {
	lastRating models.Rating
	lastDetail string
	err        error
}

func (f *fakeFeedback) RateLatestFeedback(ctx context.Context, userID string, rating models.Rating, detail string) (*models.FeedbackEntry, error) {
	f.lastRating, f.lastDetail = rating, detail
	if f.err != nil {
		return nil, f.err
	}
	return &models.FeedbackEntry{UserID: userID, Rating: rating, Detail: detail}, nil
}

const (
	adminID  = "admin-1"
	memberID = "member-1"
)

func newBot(searcher *fakeSearcher, materials *fakeMaterials, feedback *fakeFeedback) *Bot {
	if searcher == nil {
		searcher = &fakeSearcher{result: &search.Result{Text: search.NoResultsMessage}}
	}
	if materials == nil {
		materials = &fakeMaterials{}
	}
	if feedback == nil {
		feedback = &fakeFeedback{}
	}
	return New(searcher, materials, feedback, []string{adminID})
}

func TestHandleCommand_IgnoresNonCommands(t *testing.T) {
	b := newBot(nil, nil, nil)
	assert.Empty(t, b.HandleCommand(context.Background(), memberID, "just chatting about vwap"))
	assert.Empty(t, b.HandleCommand(context.Background(), memberID, ""))
	assert.Empty(t, b.HandleCommand(context.Background(), memberID, "!unknown thing"))
}

func TestSearchCommand(t *testing.T) {
	m := models.NewMaterial("chan1")
	searcher := &fakeSearcher{result: &search.Result{
		Text:      "**lesson:**\nLink: https://discord.com/channels/1/2/3",
		Materials: []*models.Material{m},
	}}
	b := newBot(searcher, nil, nil)

	reply := b.HandleCommand(context.Background(), memberID, "!bot   scalping   lessons")
	assert.True(t, strings.HasPrefix(reply, "Here are some materials I think you might find helpful:\n"))
	assert.Contains(t, reply, "Link: https://discord.com/channels/1/2/3")
	assert.Equal(t, memberID, searcher.lastUser)
	assert.Equal(t, "scalping lessons", searcher.lastQuery, "whitespace runs collapse to single spaces")
}

func TestSearchCommand_ReplyStaysWithinPlatformLimit(t *testing.T) {
	m := models.NewMaterial("chan1")
	searcher := &fakeSearcher{result: &search.Result{
		Text:      strings.Repeat("x", search.ResponseCharBudget),
		Materials: []*models.Material{m},
	}}
	b := newBot(searcher, nil, nil)

	reply := b.HandleCommand(context.Background(), memberID, "!bot scalping")
	assert.True(t, strings.HasPrefix(reply, searchIntroReply))
	assert.LessOrEqual(t, len([]rune(reply)), search.ResponseCharBudget,
		"intro plus results must fit in one message")
	assert.True(t, strings.HasSuffix(reply, "..."))
}

func TestSearchCommand_NoResults(t *testing.T) {
	b := newBot(&fakeSearcher{result: &search.Result{Text: search.NoResultsMessage}}, nil, nil)
	reply := b.HandleCommand(context.Background(), memberID, "!bot obscure topic")
	assert.Equal(t, search.NoResultsMessage, reply)
}

func TestSearchCommand_EmptyQuery(t *testing.T) {
	b := newBot(nil, nil, nil)
	assert.Equal(t, "Please provide a search query.", b.HandleCommand(context.Background(), memberID, "!bot"))
}

func TestSearchCommand_InternalError(t *testing.T) {
	b := newBot(&fakeSearcher{err: errors.New("index down")}, nil, nil)
	assert.Equal(t, internalErrorReply, b.HandleCommand(context.Background(), memberID, "!bot query"))
}

func TestAdminCommandsRequirePermission(t *testing.T) {
	b := newBot(nil, nil, nil)
	for _, cmd := range []string{
		"!add https://discord.com/channels/1/2/3",
		"!edit id summary text",
		"!view https://discord.com/channels/1/2/3",
		"!delete id",
		"!admin",
	} {
		assert.Equal(t, noPermissionReply, b.HandleCommand(context.Background(), memberID, cmd), cmd)
	}
}

func TestAddCommand(t *testing.T) {
	materials := &fakeMaterials{linkResult: &ingest.RunResult{Materials: 1}}
	b := newBot(nil, materials, nil)

	reply := b.HandleCommand(context.Background(), adminID, "!add https://discord.com/channels/11/22/33")
	assert.Equal(t, "New material processed and added.", reply)
	assert.Equal(t, source.MessageLink{GuildID: "11", ChannelID: "22", MessageID: "33"}, materials.lastLink)
}

func TestAddCommand_Validation(t *testing.T) {
	b := newBot(nil, nil, nil)
	assert.Equal(t, "Please provide a valid message link.", b.HandleCommand(context.Background(), adminID, "!add"))
	assert.Equal(t, "Please provide a valid message link.", b.HandleCommand(context.Background(), adminID, "!add not-a-link"))
}

func TestAddCommand_NothingNew(t *testing.T) {
	materials := &fakeMaterials{linkResult: &ingest.RunResult{}}
	b := newBot(nil, materials, nil)
	reply := b.HandleCommand(context.Background(), adminID, "!add https://discord.com/channels/1/2/3")
	assert.Equal(t, "Those messages are already part of existing material.", reply)
}

func TestAddCommand_RunInProgress(t *testing.T) {
	materials := &fakeMaterials{linkErr: ingest.ErrRunInProgress}
	b := newBot(nil, materials, nil)
	reply := b.HandleCommand(context.Background(), adminID, "!add https://discord.com/channels/1/2/3")
	assert.Contains(t, reply, "already being processed")
}

func TestEditCommand(t *testing.T) {
	m := models.NewMaterial("chan1")
	m.Summary = "new summary"
	materials := &fakeMaterials{material: m}
	b := newBot(nil, materials, nil)

	reply := b.HandleCommand(context.Background(), adminID, "!edit "+m.ID+" summary new summary")
	assert.Contains(t, reply, "Material "+m.ID+" updated.")
	assert.Contains(t, reply, "Summary: new summary")
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid field", ingest.ErrInvalidField, "That field cannot be edited. Editable fields: summary, description, keywords."},
		{"missing material", db.ErrNotFound, notFoundReply},
		{"internal", errors.New("boom"), internalErrorReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBot(nil, &fakeMaterials{editErr: tt.err}, nil)
			assert.Equal(t, tt.want, b.HandleCommand(context.Background(), adminID, "!edit id field value"))
		})
	}
}

func TestEditCommand_Validation(t *testing.T) {
	b := newBot(nil, nil, nil)
	reply := b.HandleCommand(context.Background(), adminID, "!edit id summary")
	assert.Equal(t, "Please provide a valid material ID, field, and new value.", reply)
}

func TestViewCommand(t *testing.T) {
	m := models.NewMaterial("chan1")
	m.Messages = []models.Message{{ID: "m1", Content: "all about vwap"}}
	m.Keywords = []string{"vwap", "volume"}
	m.Author = "alice"
	materials := &fakeMaterials{material: m}
	b := newBot(nil, materials, nil)

	reply := b.HandleCommand(context.Background(), adminID, "!view https://discord.com/channels/1/2/555")
	assert.Contains(t, reply, "ID: "+m.ID)
	assert.Contains(t, reply, "Keywords: vwap, volume")
	assert.Contains(t, reply, "Messages: all about vwap")
	assert.Contains(t, reply, "Author: alice")
}

func TestViewCommand_NotFound(t *testing.T) {
	b := newBot(nil, &fakeMaterials{materialErr: db.ErrNotFound}, nil)
	reply := b.HandleCommand(context.Background(), adminID, "!view https://discord.com/channels/1/2/3")
	assert.Equal(t, notFoundReply, reply)
}

func TestDeleteCommand(t *testing.T) {
	materials := &fakeMaterials{}
	b := newBot(nil, materials, nil)

	assert.Equal(t, "Material deleted.", b.HandleCommand(context.Background(), adminID, "!delete mat-1"))
	assert.Equal(t, []string{"mat-1"}, materials.deleted)

	materials.deleteErr = db.ErrNotFound
	assert.Equal(t, notFoundReply, b.HandleCommand(context.Background(), adminID, "!delete mat-1"))
}

func TestFeedbackCommand(t *testing.T) {
	feedback := &fakeFeedback{}
	b := newBot(nil, nil, feedback)

	assert.Equal(t, "Thanks for the feedback!", b.HandleCommand(context.Background(), memberID, "!feedback yes"))
	assert.Equal(t, models.RatingYes, feedback.lastRating)

	reply := b.HandleCommand(context.Background(), memberID, "!feedback no missed advanced topics")
	assert.Equal(t, "Thanks for the feedback!", reply)
	assert.Equal(t, models.RatingNo, feedback.lastRating)
	assert.Equal(t, "missed advanced topics", feedback.lastDetail)
}

func TestFeedbackCommand_NothingPending(t *testing.T) {
	b := newBot(nil, nil, &fakeFeedback{err: db.ErrNotFound})
	reply := b.HandleCommand(context.Background(), memberID, "!feedback yes")
	assert.Equal(t, "You have no recent search to rate.", reply)
}

func TestFeedbackCommand_Validation(t *testing.T) {
	b := newBot(nil, nil, nil)
	want := "Please answer with `!feedback yes` or `!feedback no [details]`."
	assert.Equal(t, want, b.HandleCommand(context.Background(), memberID, "!feedback"))
	assert.Equal(t, want, b.HandleCommand(context.Background(), memberID, "!feedback maybe"))
}

func TestHelpCommands(t *testing.T) {
	b := newBot(nil, nil, nil)

	help := b.HandleCommand(context.Background(), memberID, "!help")
	assert.Contains(t, help, "!bot [query]")
	assert.NotContains(t, help, "!delete", "member help must not advertise admin commands")

	adminHelp := b.HandleCommand(context.Background(), adminID, "!admin")
	assert.Contains(t, adminHelp, "!delete [materialId]")
	assert.Contains(t, adminHelp, "!edit [materialId] [field] [newValue]")
}

func TestCommandsAreCaseInsensitive(t *testing.T) {
	require := require.New(t)
	b := newBot(nil, nil, nil)
	reply := b.HandleCommand(context.Background(), memberID, "!HELP")
	require.Contains(reply, "!bot [query]")
}
