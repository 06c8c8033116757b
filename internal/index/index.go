// Package index maintains one embedding per material and ranks
// materials against a query vector by cosine similarity.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

// DefaultTopK is the stage-1 candidate count handed to the relevance
// filter.
const DefaultTopK = 10

// Store is the persistence surface for embedding records. *db.Client
// satisfies it.
type Store interface {
	UpsertEmbedding(ctx context.Context, materialID string, vector []float32) error
	EmbeddingExists(ctx context.Context, materialID string) (bool, error)
	DeleteEmbedding(ctx context.Context, materialID string) error
	ListEmbeddings(ctx context.Context) ([]models.EmbeddingRecord, error)
}

// Embedder turns text into vectors in the index's vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index couples the embedder with the embedding store.
type Index struct {
	store    Store
	embedder Embedder
}

// New creates an embedding index over the given store and embedder.
func New(store Store, embedder Embedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// Reindex recomputes and stores the material's embedding from its
// current document text. Must succeed before the material is considered
// query-ready; callers treat a failure as "not indexed".
func (ix *Index) Reindex(ctx context.Context, m *models.Material) error {
	vector, err := ix.embedder.Embed(ctx, m.Document())
	if err != nil {
		return fmt.Errorf("embed material %s: %w", m.ID, err)
	}
	if err := ix.store.UpsertEmbedding(ctx, m.ID, vector); err != nil {
		return fmt.Errorf("store embedding %s: %w", m.ID, err)
	}
	return nil
}

// ReindexBatch recomputes embeddings for several materials with one
// embedding request. Returns how many materials were stored before the
// first failure.
func (ix *Index) ReindexBatch(ctx context.Context, materials []*models.Material) (int, error) {
	if len(materials) == 0 {
		return 0, nil
	}

	docs := make([]string, len(materials))
	for i, m := range materials {
		docs[i] = m.Document()
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}

	done := 0
	for i, m := range materials {
		if err := ix.store.UpsertEmbedding(ctx, m.ID, vectors[i]); err != nil {
			return done, fmt.Errorf("store embedding %s: %w", m.ID, err)
		}
		done++
	}
	return done, nil
}

// Exists reports whether the material has a stored embedding.
func (ix *Index) Exists(ctx context.Context, materialID string) (bool, error) {
	return ix.store.EmbeddingExists(ctx, materialID)
}

// Remove deletes the material's embedding. Errors propagate so the
// caller can decide whether to roll back the accompanying material
// delete.
func (ix *Index) Remove(ctx context.Context, materialID string) error {
	if err := ix.store.DeleteEmbedding(ctx, materialID); err != nil {
		return fmt.Errorf("delete embedding %s: %w", materialID, err)
	}
	return nil
}

// Candidate is a material ranked by similarity to a query.
type Candidate struct {
	MaterialID string
	Score      float64
}

// TopK embeds the query and returns the k most similar materials in
// descending similarity, ties broken by stored record order.
func (ix *Index) TopK(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := ix.store.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		score, err := Cosine(queryVec, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", rec.MaterialID, err)
		}
		candidates = append(candidates, Candidate{MaterialID: rec.MaterialID, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Cosine returns dot(a,b) / (||a|| * ||b||). Vectors of different
// dimensions are an error: the index invariant guarantees equal
// dimensionality, so a mismatch means a corrupt record. A zero vector
// has similarity 0 to everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
