// Package enrich derives summary, keywords and description for
// materials via the LLM oracle.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

// Oracle is the completion surface the enricher needs. *llm.Model
// satisfies it; tests substitute a scripted fake.
type Oracle interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Enricher fills in a material's derived fields from its message text.
// It enriches one material per call; the ingestion service fans calls
// out across its bounded worker pool.
type Enricher struct {
	oracle Oracle
	terms  Terms
}

// New creates an enricher.
func New(oracle Oracle, terms Terms) *Enricher {
	return &Enricher{oracle: oracle, terms: terms}
}

// Enrich derives summary, keywords and description for one material.
// On failure the material is left unchanged and the error returned;
// rate limits were already retried inside the oracle wrapper.
func (e *Enricher) Enrich(ctx context.Context, m *models.Material) error {
	text := m.ContentText()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	glossary := e.terms.glossaryText()

	summary, err := e.oracle.CompleteWithSystem(ctx, summaryPrompt(glossary), text, summaryMaxTokens)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	rawKeywords, err := e.oracle.CompleteWithSystem(ctx, keywordPrompt(glossary, e.terms.StopList), text, keywordMaxTokens)
	if err != nil {
		return fmt.Errorf("extract keywords: %w", err)
	}

	description, err := e.oracle.CompleteWithSystem(ctx, descriptionPrompt, text, descriptionMaxTokens)
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}

	// All three calls succeeded; only now mutate the material.
	m.Summary = strings.TrimSpace(summary)
	m.Description = strings.TrimSpace(description)
	m.Keywords = e.cleanKeywords(rawKeywords)
	return nil
}

// cleanKeywords splits the oracle's comma-separated answer, trims,
// dedupes, drops stop-listed terms and caps the list.
func (e *Enricher) cleanKeywords(raw string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)

	for _, part := range strings.Split(raw, ",") {
		kw := strings.TrimSpace(part)
		if kw == "" || e.terms.stopped(kw) {
			continue
		}
		lower := strings.ToLower(kw)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, kw)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

