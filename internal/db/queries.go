// Package db provides SurrealDB query functions for material operations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

const materialFields = `meta::id(id) AS id, channel_id, messages, links, author, summary, description, keywords, created`

// CreateMaterial stores a new material under its UUID record id.
func (c *Client) CreateMaterial(ctx context.Context, m *models.Material) error {
	// Schema fields are non-null arrays; never send CBOR null.
	links := m.Links
	if links == nil {
		links = []string{}
	}
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("material", $id) CONTENT {
			channel_id:  $channel_id,
			messages:    $messages,
			links:       $links,
			author:      $author,
			summary:     $summary,
			description: $description,
			keywords:    $keywords
		}
	`, map[string]any{
		"id":          m.ID,
		"channel_id":  m.ChannelID,
		"messages":    m.Messages,
		"links":       links,
		"author":      m.Author,
		"summary":     m.Summary,
		"description": m.Description,
		"keywords":    keywords,
	})
	if err != nil {
		return fmt.Errorf("create material: %w", wrapQueryError(err))
	}
	return nil
}

// GetMaterial retrieves a material by id. Returns ErrNotFound if absent.
func (c *Client) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	results, err := surrealdb.Query[[]models.Material](ctx, c.db, fmt.Sprintf(`
		SELECT %s FROM type::record("material", $id)
	`, materialFields), map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get material: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// GetMaterialByMessageID finds the material that absorbed the given
// message id. Returns ErrNotFound if no material contains it.
func (c *Client) GetMaterialByMessageID(ctx context.Context, messageID string) (*models.Material, error) {
	results, err := surrealdb.Query[[]models.Material](ctx, c.db, fmt.Sprintf(`
		SELECT %s FROM material WHERE messages[*].id CONTAINS $mid LIMIT 1
	`, materialFields), map[string]any{"mid": messageID})
	if err != nil {
		return nil, fmt.Errorf("get material by message: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ListMaterials returns all materials ordered by creation time.
func (c *Client) ListMaterials(ctx context.Context) ([]models.Material, error) {
	results, err := surrealdb.Query[[]models.Material](ctx, c.db, fmt.Sprintf(`
		SELECT %s FROM material ORDER BY created
	`, materialFields), nil)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Material{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateMaterialFields merges the given fields into a material.
// Returns ErrNotFound if the material does not exist.
func (c *Client) UpdateMaterialFields(ctx context.Context, id string, fields map[string]any) error {
	results, err := surrealdb.Query[[]models.Material](ctx, c.db, `
		UPDATE type::record("material", $id) MERGE $fields
	`, map[string]any{"id": id, "fields": fields})
	if err != nil {
		return fmt.Errorf("update material: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMaterial removes a material record.
// Returns ErrNotFound if the material does not exist.
func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	if _, err := c.GetMaterial(ctx, id); err != nil {
		return err
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("material", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete material: %w", wrapQueryError(err))
	}
	return nil
}

// UpsertEmbedding stores the vector for a material, replacing any
// existing one. The record is keyed by the material id, so the
// one-vector-per-material invariant holds structurally.
func (c *Client) UpsertEmbedding(ctx context.Context, materialID string, vector []float32) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("embedding", $id) SET material_id = $id, vector = $vector
	`, map[string]any{"id": materialID, "vector": vector})
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", wrapQueryError(err))
	}
	return nil
}

// EmbeddingExists reports whether a material has a stored embedding.
func (c *Client) EmbeddingExists(ctx context.Context, materialID string) (bool, error) {
	results, err := surrealdb.Query[[]models.EmbeddingRecord](ctx, c.db, `
		SELECT material_id, vector FROM type::record("embedding", $id)
	`, map[string]any{"id": materialID})
	if err != nil {
		return false, fmt.Errorf("embedding exists: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// DeleteEmbedding removes a material's embedding. Deleting a missing
// embedding is not an error: the end state is the same.
func (c *Client) DeleteEmbedding(ctx context.Context, materialID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("embedding", $id)
	`, map[string]any{"id": materialID})
	if err != nil {
		return fmt.Errorf("delete embedding: %w", wrapQueryError(err))
	}
	return nil
}

// ListEmbeddings returns every stored embedding record in a stable
// order, so similarity ranking is reproducible across calls.
func (c *Client) ListEmbeddings(ctx context.Context) ([]models.EmbeddingRecord, error) {
	results, err := surrealdb.Query[[]models.EmbeddingRecord](ctx, c.db, `
		SELECT material_id, vector FROM embedding ORDER BY material_id
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.EmbeddingRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// LoadProcessedIDs returns the set of message ids already absorbed into
// some material for the given channel.
func (c *Client) LoadProcessedIDs(ctx context.Context, channelID string) (map[string]struct{}, error) {
	results, err := surrealdb.Query[[]struct {
		ID string `json:"id"`
	}](ctx, c.db, `
		SELECT meta::id(id) AS id FROM processed_message WHERE channel_id = $channel
	`, map[string]any{"channel": channelID})
	if err != nil {
		return nil, fmt.Errorf("load processed ids: %w", wrapQueryError(err))
	}

	ids := make(map[string]struct{})
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			ids[row.ID] = struct{}{}
		}
	}
	return ids, nil
}

// AddProcessedIDs appends message ids to the ledger. Records are keyed
// by message id; re-adding an id is a no-op, the ledger only grows.
func (c *Client) AddProcessedIDs(ctx context.Context, channelID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		FOR $mid IN $ids {
			UPSERT type::record("processed_message", $mid) SET channel_id = $channel;
		}
	`, map[string]any{"ids": ids, "channel": channelID})
	if err != nil {
		return fmt.Errorf("add processed ids: %w", wrapQueryError(err))
	}
	return nil
}

// GetCursor returns the last processed message id for a channel, or ""
// when ingestion has never run.
func (c *Client) GetCursor(ctx context.Context, channelID string) (string, error) {
	results, err := surrealdb.Query[[]models.ChannelCursor](ctx, c.db, `
		SELECT channel_id, last_message_id FROM type::record("channel_cursor", $channel)
	`, map[string]any{"channel": channelID})
	if err != nil {
		return "", fmt.Errorf("get cursor: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", nil
	}
	return (*results)[0].Result[0].LastMessageID, nil
}

// SetCursor records the last processed message id for a channel.
func (c *Client) SetCursor(ctx context.Context, channelID, messageID string) error {
	cursor := models.ChannelCursor{ChannelID: channelID, LastMessageID: messageID}
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("channel_cursor", $channel) SET channel_id = $cursor.channel_id, last_message_id = $cursor.last_message_id
	`, map[string]any{"channel": channelID, "cursor": cursor})
	if err != nil {
		return fmt.Errorf("set cursor: %w", wrapQueryError(err))
	}
	return nil
}

// UpsertPendingFeedback records a feedback request for a user, replacing
// any earlier entry that was never rated. At most one unset entry per
// user exists at a time.
func (c *Client) UpsertPendingFeedback(ctx context.Context, entry *models.FeedbackEntry) error {
	links := entry.Links
	if links == nil {
		links = []string{}
	}
	// Delete and create atomically so a failure cannot eat the previous
	// pending entry without recording the new one.
	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE feedback WHERE user_id = $user AND rating = '';
		CREATE type::record("feedback", $id) CONTENT {
			user_id:   $user,
			query:     $query,
			links:     $links,
			timestamp: $timestamp,
			rating:    '',
			detail:    ''
		};
		COMMIT TRANSACTION;
	`, map[string]any{
		"id":        entry.ID,
		"user":      entry.UserID,
		"query":     entry.Query,
		"links":     links,
		"timestamp": entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("upsert pending feedback: %w", wrapQueryError(err))
	}
	return nil
}

const feedbackFields = `meta::id(id) AS id, user_id, query, links, timestamp, rating, detail`

// RateLatestFeedback applies a rating to the user's outstanding feedback
// request. Returns ErrNotFound when the user has nothing pending.
func (c *Client) RateLatestFeedback(ctx context.Context, userID string, rating models.Rating, detail string) (*models.FeedbackEntry, error) {
	results, err := surrealdb.Query[[]models.FeedbackEntry](ctx, c.db, fmt.Sprintf(`
		UPDATE feedback SET rating = $rating, detail = $detail
		WHERE user_id = $user AND rating = ''
		RETURN %s
	`, feedbackFields), map[string]any{
		"user":   userID,
		"rating": string(rating),
		"detail": detail,
	})
	if err != nil {
		return nil, fmt.Errorf("rate feedback: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ListFeedback returns all feedback entries newer than the given time.
// Zero time returns everything.
func (c *Client) ListFeedback(ctx context.Context, since time.Time) ([]models.FeedbackEntry, error) {
	results, err := surrealdb.Query[[]models.FeedbackEntry](ctx, c.db, fmt.Sprintf(`
		SELECT %s FROM feedback WHERE timestamp > $since ORDER BY timestamp
	`, feedbackFields), map[string]any{"since": since})
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.FeedbackEntry{}, nil
	}
	return (*results)[0].Result, nil
}
