package enrich

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTerms(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTerms(t *testing.T) {
	path := writeTerms(t, `
glossary:
  fvg: fair value gap, an unfilled price imbalance
stop_list:
  - crypto
  - charts
`)

	terms, err := LoadTerms(path)
	require.NoError(t, err)
	assert.Equal(t, "fair value gap, an unfilled price imbalance", terms.Glossary["fvg"])
	assert.Equal(t, []string{"crypto", "charts"}, terms.StopList)
}

func TestLoadTerms_PartialFileKeepsDefaults(t *testing.T) {
	path := writeTerms(t, `
stop_list:
  - memes
`)

	terms, err := LoadTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"memes"}, terms.StopList)
	assert.Equal(t, DefaultTerms().Glossary, terms.Glossary, "missing glossary falls back to the default")
}

func TestLoadTerms_MissingFile(t *testing.T) {
	_, err := LoadTerms(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGlossaryTextIsSortedAndStable(t *testing.T) {
	terms := Terms{Glossary: map[string]string{
		"zeta":  "last",
		"alpha": "first",
	}}
	text := terms.glossaryText()
	assert.True(t, strings.Index(text, "alpha: first") < strings.Index(text, "zeta: last"))
	assert.Equal(t, text, terms.glossaryText())
}

func TestStopped(t *testing.T) {
	terms := DefaultTerms()
	assert.True(t, terms.stopped("Trading"))
	assert.True(t, terms.stopped("YOUTUBE"))
	assert.False(t, terms.stopped("order blocks"))
}
