package index

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0, false},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0, false},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Cosine() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5, 0.01}
	b := []float32{2.2, 0.4, -0.7, 1.9}

	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("sim(a,b)=%v != sim(b,a)=%v", ab, ba)
	}
}

// fakeStore is an in-memory Store preserving insertion order, matching
// the stable ordering the real store guarantees.
type fakeStore struct {
	order   []string
	vectors map[string][]float32
	failAll error
}

func newFakeStore() *fakeStore {
	return &fakeStore{vectors: map[string][]float32{}}
}

func (s *fakeStore) UpsertEmbedding(_ context.Context, id string, v []float32) error {
	if s.failAll != nil {
		return s.failAll
	}
	if _, ok := s.vectors[id]; !ok {
		s.order = append(s.order, id)
	}
	s.vectors[id] = v
	return nil
}

func (s *fakeStore) EmbeddingExists(_ context.Context, id string) (bool, error) {
	_, ok := s.vectors[id]
	return ok, s.failAll
}

func (s *fakeStore) DeleteEmbedding(_ context.Context, id string) error {
	if s.failAll != nil {
		return s.failAll
	}
	delete(s.vectors, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) ListEmbeddings(_ context.Context) ([]models.EmbeddingRecord, error) {
	if s.failAll != nil {
		return nil, s.failAll
	}
	out := make([]models.EmbeddingRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, models.EmbeddingRecord{MaterialID: id, Vector: s.vectors[id]})
	}
	return out, nil
}

// fixedEmbedder returns canned vectors by input text.
type fixedEmbedder struct {
	byText  map[string][]float32
	failure error
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failure != nil {
		return nil, e.failure
	}
	if v, ok := e.byText[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestReindex_StoresDocumentEmbedding(t *testing.T) {
	store := newFakeStore()
	m := &models.Material{
		ID:      "mat1",
		Summary: "a summary",
		Messages: []models.Message{
			{ID: "m1", Content: "hello"},
			{ID: "m2", Content: "world"},
		},
	}
	emb := &fixedEmbedder{byText: map[string][]float32{
		"a summary hello world": {1, 2, 3},
	}}

	ix := New(store, emb)
	if err := ix.Reindex(context.Background(), m); err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}

	got, ok := store.vectors["mat1"]
	if !ok {
		t.Fatal("embedding not stored")
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("stored vector = %v; document text was not summary+contents", got)
	}

	exists, err := ix.Exists(context.Background(), "mat1")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true", exists, err)
	}
}

func TestReindexBatch_StoresEveryMaterial(t *testing.T) {
	store := newFakeStore()
	emb := &fixedEmbedder{byText: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {0, 1, 0},
	}}
	ix := New(store, emb)

	mats := []*models.Material{
		{ID: "mat1", Messages: []models.Message{{ID: "m1", Content: "first"}}},
		{ID: "mat2", Messages: []models.Message{{ID: "m2", Content: "second"}}},
	}
	done, err := ix.ReindexBatch(context.Background(), mats)
	if err != nil {
		t.Fatalf("ReindexBatch() error = %v", err)
	}
	if done != 2 {
		t.Fatalf("done = %d, want 2", done)
	}
	if v := store.vectors["mat1"]; v[0] != 1 {
		t.Errorf("mat1 vector = %v", v)
	}
	if v := store.vectors["mat2"]; v[1] != 1 {
		t.Errorf("mat2 vector = %v", v)
	}

	done, err = ix.ReindexBatch(context.Background(), nil)
	if err != nil || done != 0 {
		t.Errorf("empty batch = %d, %v; want 0, nil", done, err)
	}
}

func TestReindexBatch_EmbeddingFailureStoresNothing(t *testing.T) {
	store := newFakeStore()
	ix := New(store, &fixedEmbedder{failure: errors.New("oracle down")})

	mats := []*models.Material{{ID: "mat1", Messages: []models.Message{{ID: "m1", Content: "x"}}}}
	if _, err := ix.ReindexBatch(context.Background(), mats); err == nil {
		t.Fatal("expected error")
	}
	if len(store.vectors) != 0 {
		t.Error("failed batch must not leave embeddings behind")
	}
}

func TestReindex_EmbeddingFailurePropagates(t *testing.T) {
	store := newFakeStore()
	ix := New(store, &fixedEmbedder{failure: errors.New("oracle down")})

	m := &models.Material{ID: "mat1", Messages: []models.Message{{ID: "m1", Content: "x"}}}
	if err := ix.Reindex(context.Background(), m); err == nil {
		t.Fatal("expected error")
	}
	if len(store.vectors) != 0 {
		t.Error("failed reindex must not leave an embedding behind")
	}
}

func TestRemove_DeletesAndPropagatesFailure(t *testing.T) {
	store := newFakeStore()
	ix := New(store, &fixedEmbedder{})

	_ = store.UpsertEmbedding(context.Background(), "mat1", []float32{1})
	if err := ix.Remove(context.Background(), "mat1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	exists, _ := ix.Exists(context.Background(), "mat1")
	if exists {
		t.Error("embedding still present after Remove")
	}

	store.failAll = errors.New("store down")
	if err := ix.Remove(context.Background(), "mat2"); err == nil {
		t.Error("store failure must propagate from Remove")
	}
}

func TestTopK_RanksAndBreaksTiesByStoredOrder(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	// b and c are identical: the tie must resolve to stored order (b first).
	_ = store.UpsertEmbedding(ctx, "a", []float32{0, 1, 0})
	_ = store.UpsertEmbedding(ctx, "b", []float32{1, 0, 0})
	_ = store.UpsertEmbedding(ctx, "c", []float32{1, 0, 0})
	_ = store.UpsertEmbedding(ctx, "d", []float32{0.9, 0.1, 0})

	emb := &fixedEmbedder{byText: map[string][]float32{"query": {1, 0, 0}}}
	ix := New(store, emb)

	got, err := ix.TopK(ctx, "query", 3)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	wantOrder := []string{"b", "c", "d"}
	for i, want := range wantOrder {
		if got[i].MaterialID != want {
			t.Errorf("candidate[%d] = %s, want %s", i, got[i].MaterialID, want)
		}
	}
	if math.Abs(got[0].Score-1.0) > 1e-9 {
		t.Errorf("exact match score = %v, want 1.0", got[0].Score)
	}
}

func TestTopK_ExactMatchIsSoleTopCandidate(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	_ = store.UpsertEmbedding(ctx, "target", []float32{0, 0, 1})
	_ = store.UpsertEmbedding(ctx, "other1", []float32{1, 0, 0})
	_ = store.UpsertEmbedding(ctx, "other2", []float32{0, 1, 0})

	emb := &fixedEmbedder{byText: map[string][]float32{"query": {0, 0, 1}}}
	ix := New(store, emb)

	got, err := ix.TopK(ctx, "query", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MaterialID != "target" {
		t.Fatalf("TopK(1) = %+v, want sole candidate 'target'", got)
	}
}

func TestTopK_DimensionMismatchIsError(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	_ = store.UpsertEmbedding(ctx, "bad", []float32{1, 2})

	emb := &fixedEmbedder{byText: map[string][]float32{"query": {1, 0, 0}}}
	ix := New(store, emb)

	if _, err := ix.TopK(ctx, "query", 5); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestTopK_EmptyIndex(t *testing.T) {
	ix := New(newFakeStore(), &fixedEmbedder{byText: map[string][]float32{"query": {1}}})
	got, err := ix.TopK(context.Background(), "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty index returned %d candidates", len(got))
	}
}
