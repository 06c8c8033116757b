// Package search implements the two-stage retrieval pipeline: cosine
// candidate selection over the embedding index, then an LLM relevance
// filter over the candidates.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JacekAdamczyk/paragonBot/internal/db"
	"github.com/JacekAdamczyk/paragonBot/internal/index"
	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

const (
	// MaxResults caps how many materials one reply surfaces.
	MaxResults = 5

	// NoResultsMessage is returned verbatim when either stage leaves
	// nothing to show.
	NoResultsMessage = "No relevant materials found."

	filterMaxTokens = 300
)

// CandidateIndex is the stage-1 surface. *index.Index satisfies it.
type CandidateIndex interface {
	TopK(ctx context.Context, query string, k int) ([]index.Candidate, error)
}

// MaterialStore loads candidate materials for the filter stage.
type MaterialStore interface {
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
}

// FeedbackStore records the pending feedback request a search leaves
// behind.
type FeedbackStore interface {
	UpsertPendingFeedback(ctx context.Context, entry *models.FeedbackEntry) error
}

// Oracle is the completion surface for the relevance filter.
type Oracle interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Retriever answers free-text queries with ranked materials.
type Retriever struct {
	idx       CandidateIndex
	materials MaterialStore
	feedback  FeedbackStore
	oracle    Oracle
	guildID   string
	topK      int
	now       func() time.Time
}

// New creates a retriever. guildID anchors the deep links in replies.
func New(idx CandidateIndex, materials MaterialStore, feedback FeedbackStore, oracle Oracle, guildID string) *Retriever {
	return &Retriever{
		idx:       idx,
		materials: materials,
		feedback:  feedback,
		oracle:    oracle,
		guildID:   guildID,
		topK:      index.DefaultTopK,
		now:       time.Now,
	}
}

// Result is a rendered search response.
type Result struct {
	// Text is the user-facing reply, already capped to the platform
	// character budget.
	Text string

	// Materials are the surfaced materials, best first.
	Materials []*models.Material

	// Truncated reports that more materials passed the relevance
	// filter than were surfaced.
	Truncated bool
}

// Search runs the two-stage pipeline for a query and, when results
// exist, records a pending feedback entry for the user (replacing any
// earlier unanswered one). userID may be empty for surfaces without a
// feedback loop, e.g. the terminal.
func (r *Retriever) Search(ctx context.Context, userID, query string) (*Result, error) {
	candidates, err := r.idx.TopK(ctx, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	if len(candidates) == 0 {
		return &Result{Text: NoResultsMessage}, nil
	}

	loaded := make([]*models.Material, 0, len(candidates))
	for _, cand := range candidates {
		m, err := r.materials.GetMaterial(ctx, cand.MaterialID)
		if errors.Is(err, db.ErrNotFound) {
			// Embedding outlived its material; retrieval just skips it.
			slog.Warn("embedding without material", "material", cand.MaterialID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", cand.MaterialID, err)
		}
		loaded = append(loaded, m)
	}
	if len(loaded) == 0 {
		return &Result{Text: NoResultsMessage}, nil
	}

	relevant, err := r.filterRelevant(ctx, query, loaded)
	if err != nil {
		return nil, fmt.Errorf("relevance filter: %w", err)
	}
	if len(relevant) == 0 {
		return &Result{Text: NoResultsMessage}, nil
	}

	truncated := len(relevant) > MaxResults
	if truncated {
		relevant = relevant[:MaxResults]
	}

	text := renderResults(relevant, r.guildID, truncated)

	if userID != "" {
		entry := &models.FeedbackEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			Query:     query,
			Links:     deepLinks(relevant, r.guildID),
			Timestamp: r.now(),
			Rating:    models.RatingUnset,
		}
		if err := r.feedback.UpsertPendingFeedback(ctx, entry); err != nil {
			// The search succeeded; a lost feedback request is not
			// worth failing the reply over.
			slog.Warn("failed to record feedback request", "user", userID, "error", err)
		}
	}

	return &Result{Text: text, Materials: relevant, Truncated: truncated}, nil
}

// filterRelevant asks the oracle which candidates answer the query and
// keeps them in candidate order. Materials whose id the oracle does not
// echo back are dropped even though they passed stage 1.
func (r *Retriever) filterRelevant(ctx context.Context, query string, candidates []*models.Material) ([]*models.Material, error) {
	prompt := buildFilterPrompt(query, candidates)

	answer, err := r.oracle.CompleteWithSystem(ctx, "You are a helpful assistant.", prompt, filterMaxTokens)
	if err != nil {
		return nil, err
	}

	matched := extractIDs(answer)
	kept := make([]*models.Material, 0, len(candidates))
	for _, m := range candidates {
		if _, ok := matched[m.ID]; ok {
			kept = append(kept, m)
		}
	}
	return kept, nil
}
