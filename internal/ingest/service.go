// Package ingest orchestrates channel processing: it pulls message
// history from a source, segments it into materials, persists them and
// runs enrichment and indexing over everything newly created.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JacekAdamczyk/paragonBot/internal/db"
	"github.com/JacekAdamczyk/paragonBot/internal/llm"
	"github.com/JacekAdamczyk/paragonBot/internal/models"
	"github.com/JacekAdamczyk/paragonBot/internal/segment"
	"github.com/JacekAdamczyk/paragonBot/internal/source"
)

// DefaultWorkers bounds concurrent enrich+index pipelines so a bulk run
// does not amplify rate-limit pressure on the model APIs.
const DefaultWorkers = 5

// ErrRunInProgress is returned when a channel already has an active
// ingestion run. Runs over one channel are serialized in-process.
var ErrRunInProgress = errors.New("ingestion already running for this channel")

// ErrInvalidField is returned by Edit for fields that may not be
// changed by hand.
var ErrInvalidField = errors.New("field is not editable")

// Store is the persistence surface the service needs. *db.Client
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	CreateMaterial(ctx context.Context, m *models.Material) error
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	GetMaterialByMessageID(ctx context.Context, messageID string) (*models.Material, error)
	ListMaterials(ctx context.Context) ([]models.Material, error)
	UpdateMaterialFields(ctx context.Context, id string, fields map[string]any) error
	DeleteMaterial(ctx context.Context, id string) error

	LoadProcessedIDs(ctx context.Context, channelID string) (map[string]struct{}, error)
	AddProcessedIDs(ctx context.Context, channelID string, ids []string) error
	GetCursor(ctx context.Context, channelID string) (string, error)
	SetCursor(ctx context.Context, channelID, messageID string) error
}

// Indexer maintains the embedding for a material.
type Indexer interface {
	Reindex(ctx context.Context, m *models.Material) error
	ReindexBatch(ctx context.Context, materials []*models.Material) (int, error)
	Remove(ctx context.Context, materialID string) error
}

// Enricher derives summary, keywords and description for a material.
type Enricher interface {
	Enrich(ctx context.Context, m *models.Material) error
}

// Service runs ingestion and owns material lifecycle operations.
type Service struct {
	store    Store
	src      source.Source
	enricher Enricher
	idx      Indexer

	gap       time.Duration
	pageLimit int
	workers   int

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates the service. gap, pageLimit and workers fall back to
// their defaults when non-positive.
func New(store Store, src source.Source, enricher Enricher, idx Indexer, gap time.Duration, pageLimit, workers int) *Service {
	if gap <= 0 {
		gap = segment.DefaultGap
	}
	if pageLimit <= 0 {
		pageLimit = 100
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		store:     store,
		src:       src,
		enricher:  enricher,
		idx:       idx,
		gap:       gap,
		pageLimit: pageLimit,
		workers:   workers,
		running:   make(map[string]struct{}),
	}
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	Messages  int // messages newly absorbed into materials
	Materials int // materials created or extended
	Enriched  int
	Failed    int // materials whose enrichment or indexing failed
}

func (s *Service) acquire(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[channelID]; busy {
		return ErrRunInProgress
	}
	s.running[channelID] = struct{}{}
	return nil
}

func (s *Service) release(channelID string) {
	s.mu.Lock()
	delete(s.running, channelID)
	s.mu.Unlock()
}

// ProcessChannel ingests a channel's full unprocessed history. Pages
// are collected newest-to-oldest down to the persisted cursor (or the
// start of the channel), then replayed oldest-first through the
// segmenter. Ledger and cursor advance only after a page is fully
// classified, so a crash never skips or double-counts a message.
func (s *Service) ProcessChannel(ctx context.Context, channelID string) (*RunResult, error) {
	if err := s.acquire(channelID); err != nil {
		return nil, err
	}
	defer s.release(channelID)

	ledger, err := s.store.LoadProcessedIDs(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	cursor, err := s.store.GetCursor(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}

	pages, err := s.collectPages(ctx, channelID, cursor)
	if err != nil {
		// The cursor stays where the last completed run left it.
		return nil, err
	}

	// Resume from the previous run's tail: new messages that arrive
	// within the gap of the last processed one extend its material
	// instead of opening a fresh one.
	seg := segment.New(channelID, s.gap)
	resumedID := ""
	resumedLen := 0
	if cursor != "" {
		tail, err := s.store.GetMaterialByMessageID(ctx, cursor)
		switch {
		case err == nil && len(tail.Messages) > 0:
			seg = segment.Resume(channelID, s.gap, tail, tail.Messages[len(tail.Messages)-1].Timestamp)
			resumedID = tail.ID
			resumedLen = len(tail.Messages)
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("load resume material: %w", err)
		}
	}

	res := &RunResult{}
	var pipeline []*models.Material
	persisted := 0

	// flush writes materials sealed since the last call. The resumed
	// tail is updated in place when it gained messages and skipped
	// entirely when it sealed untouched.
	flush := func() error {
		sealed := seg.Materials()
		for _, m := range sealed[persisted:] {
			switch {
			case m.ID == resumedID && len(m.Messages) == resumedLen:
			case m.ID == resumedID:
				err := s.store.UpdateMaterialFields(ctx, m.ID, map[string]any{
					"messages": m.Messages,
					"links":    m.Links,
					"author":   m.Author,
				})
				if err != nil {
					return fmt.Errorf("extend material %s: %w", m.ID, err)
				}
				pipeline = append(pipeline, m)
			default:
				if err := s.store.CreateMaterial(ctx, m); err != nil {
					return fmt.Errorf("persist material: %w", err)
				}
				pipeline = append(pipeline, m)
			}
		}
		persisted = len(sealed)
		return nil
	}

	// pages were collected newest-first; replay them oldest-first.
	for i := len(pages) - 1; i >= 0; i-- {
		page := pages[i]
		added := seg.Process(page, ledger)
		res.Messages += len(added)

		if err := flush(); err != nil {
			return res, err
		}
		if len(added) > 0 {
			if err := s.store.AddProcessedIDs(ctx, channelID, added); err != nil {
				return res, fmt.Errorf("commit ledger: %w", err)
			}
		}
		if len(page) > 0 {
			if err := s.store.SetCursor(ctx, channelID, page[len(page)-1].ID); err != nil {
				return res, fmt.Errorf("advance cursor: %w", err)
			}
		}
	}

	seg.Finish()
	if err := flush(); err != nil {
		return res, err
	}
	res.Materials = len(pipeline)

	enriched, failed, err := s.enrichAndIndex(ctx, pipeline)
	res.Enriched, res.Failed = enriched, failed
	return res, err
}

// collectPages walks backwards through channel history until the start
// of the channel or the resume cursor is reached. Each returned page is
// oldest-first; the slice itself is newest page first.
func (s *Service) collectPages(ctx context.Context, channelID, cursor string) ([][]source.Message, error) {
	var pages [][]source.Message
	beforeID := ""

	for {
		page, done, err := s.src.FetchPage(ctx, channelID, beforeID, s.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch history for %s: %w", channelID, err)
		}
		if len(page) == 0 {
			return pages, nil
		}

		if cursor != "" {
			for i, msg := range page {
				if msg.ID == cursor {
					// Everything at and before the cursor was already
					// committed by an earlier run.
					if trimmed := page[i+1:]; len(trimmed) > 0 {
						pages = append(pages, trimmed)
					}
					return pages, nil
				}
			}
		}

		pages = append(pages, page)
		if done {
			return pages, nil
		}
		beforeID = page[0].ID
	}
}

// ProcessLink ingests the window of messages around a single linked
// message. Used when someone points the bot at a conversation directly
// instead of running a full channel pass. The channel cursor is not
// touched.
func (s *Service) ProcessLink(ctx context.Context, link source.MessageLink) (*RunResult, error) {
	if err := s.acquire(link.ChannelID); err != nil {
		return nil, err
	}
	defer s.release(link.ChannelID)

	ledger, err := s.store.LoadProcessedIDs(ctx, link.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	msgs, err := s.src.FetchAround(ctx, link.ChannelID, link.MessageID, s.gap)
	if err != nil {
		return nil, fmt.Errorf("fetch window around %s: %w", link.MessageID, err)
	}

	res := &RunResult{}
	seg := segment.New(link.ChannelID, s.gap)
	added := seg.Process(msgs, ledger)
	res.Messages = len(added)
	seg.Finish()

	sealed := seg.Materials()
	for _, m := range sealed {
		if err := s.store.CreateMaterial(ctx, m); err != nil {
			return res, fmt.Errorf("persist material: %w", err)
		}
	}
	res.Materials = len(sealed)

	if len(added) > 0 {
		if err := s.store.AddProcessedIDs(ctx, link.ChannelID, added); err != nil {
			return res, fmt.Errorf("commit ledger: %w", err)
		}
	}

	enriched, failed, err := s.enrichAndIndex(ctx, sealed)
	res.Enriched, res.Failed = enriched, failed
	return res, err
}

// enrichAndIndex runs the derived-field pipeline over freshly created
// materials through a bounded worker pool. A failure for one material
// is logged and does not abort the others; the material is still
// indexed on its raw content so it remains findable. A fatal API error
// stops the pass early, since every remaining call would fail the same
// way.
func (s *Service) enrichAndIndex(ctx context.Context, materials []*models.Material) (enriched, failed int, err error) {
	var (
		okCount   atomic.Int64
		failCount atomic.Int64
		fatalMu   sync.Mutex
		fatal     error
	)

	work := make(chan *models.Material)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range work {
				ok := true
				if err := s.enricher.Enrich(ctx, m); err != nil {
					ok = false
					slog.Warn("enrichment failed", "material", m.ID, "error", err)
					if errors.Is(err, llm.ErrFatalAPI) {
						fatalMu.Lock()
						if fatal == nil {
							fatal = err
						}
						fatalMu.Unlock()
					}
				} else if m.Summary != "" || len(m.Keywords) > 0 {
					if err := s.store.UpdateMaterialFields(ctx, m.ID, map[string]any{
						"summary":     m.Summary,
						"description": m.Description,
						"keywords":    m.Keywords,
					}); err != nil {
						ok = false
						slog.Warn("storing derived fields failed", "material", m.ID, "error", err)
					}
				}
				if err := s.idx.Reindex(ctx, m); err != nil {
					ok = false
					slog.Warn("indexing failed", "material", m.ID, "error", err)
				}
				if ok {
					okCount.Add(1)
				} else {
					failCount.Add(1)
				}
			}
		}()
	}

dispatch:
	for _, m := range materials {
		fatalMu.Lock()
		stop := fatal != nil
		fatalMu.Unlock()
		if stop {
			break dispatch
		}
		select {
		case work <- m:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(work)
	wg.Wait()

	if fatal != nil {
		return int(okCount.Load()), int(failCount.Load()), fatal
	}
	return int(okCount.Load()), int(failCount.Load()), ctx.Err()
}

// MaterialByMessage returns the material containing the given message.
func (s *Service) MaterialByMessage(ctx context.Context, messageID string) (*models.Material, error) {
	return s.store.GetMaterialByMessageID(ctx, messageID)
}

// Edit changes one hand-editable field of a material. Editing the
// summary changes the document text, so the embedding is recomputed
// before the edit is considered done.
func (s *Service) Edit(ctx context.Context, id, field, value string) (*models.Material, error) {
	var fields map[string]any
	switch field {
	case "summary":
		fields = map[string]any{"summary": strings.TrimSpace(value)}
	case "description":
		fields = map[string]any{"description": strings.TrimSpace(value)}
	case "keywords":
		var keywords []string
		for _, kw := range strings.Split(value, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		fields = map[string]any{"keywords": keywords}
	default:
		return nil, fmt.Errorf("%w: %q (editable: summary, description, keywords)", ErrInvalidField, field)
	}

	if err := s.store.UpdateMaterialFields(ctx, id, fields); err != nil {
		return nil, err
	}
	m, err := s.store.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if field == "summary" {
		if err := s.idx.Reindex(ctx, m); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Delete removes a material and its embedding. The embedding goes
// first: if that fails the material stays intact and searchable rather
// than orphaned half-deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetMaterial(ctx, id); err != nil {
		return err
	}
	if err := s.idx.Remove(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteMaterial(ctx, id)
}

// reindexBatchSize is how many materials one embedding request covers
// during a full reindex.
const reindexBatchSize = 64

// ReindexAll recomputes the embedding of every stored material in
// batches, used after changing the embedding model or dimension.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	mats, err := s.store.ListMaterials(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for start := 0; start < len(mats); start += reindexBatchSize {
		end := start + reindexBatchSize
		if end > len(mats) {
			end = len(mats)
		}
		batch := make([]*models.Material, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &mats[i])
		}

		n, err := s.idx.ReindexBatch(ctx, batch)
		done += n
		if err != nil {
			return done, fmt.Errorf("reindex batch at %d: %w", start, err)
		}
		if err := ctx.Err(); err != nil {
			return done, err
		}
	}
	return done, nil
}

// RebuildLedger reconstructs the processed-message ledger from stored
// materials, for databases created before the ledger existed.
func (s *Service) RebuildLedger(ctx context.Context) (int, error) {
	mats, err := s.store.ListMaterials(ctx)
	if err != nil {
		return 0, err
	}

	byChannel := make(map[string][]string)
	total := 0
	for _, m := range mats {
		for _, msg := range m.Messages {
			byChannel[m.ChannelID] = append(byChannel[m.ChannelID], msg.ID)
			total++
		}
	}
	for channelID, ids := range byChannel {
		if err := s.store.AddProcessedIDs(ctx, channelID, ids); err != nil {
			return 0, fmt.Errorf("rebuild ledger for %s: %w", channelID, err)
		}
	}
	return total, nil
}
