package enrich

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Terms carries the domain glossary fed to the oracle and the stop-list
// of keywords too generic to index.
type Terms struct {
	Glossary map[string]string `yaml:"glossary"`
	StopList []string          `yaml:"stop_list"`
}

// DefaultTerms returns the built-in trading glossary and stop-list.
func DefaultTerms() Terms {
	return Terms{
		Glossary: map[string]string{
			"order block":  "a price area where large institutional orders were placed",
			"liquidity":    "resting orders that price is drawn toward",
			"vwap":         "volume-weighted average price, an intraday fair-value line",
			"heatmap":      "visualisation of resting limit-order liquidity",
			"spot play":    "a trade taken on the spot market rather than derivatives",
			"ema":          "exponential moving average",
			"price action": "trading decisions read from raw price movement",
		},
		StopList: []string{"youtube", "trading", "investing", "finance", "cryptocurrencies"},
	}
}

// LoadTerms reads a Terms YAML file. Missing sections fall back to the
// defaults, so a file may override just the stop-list.
func LoadTerms(path string) (Terms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Terms{}, fmt.Errorf("read terms file: %w", err)
	}

	var t Terms
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Terms{}, fmt.Errorf("parse terms file: %w", err)
	}

	defaults := DefaultTerms()
	if t.Glossary == nil {
		t.Glossary = defaults.Glossary
	}
	if t.StopList == nil {
		t.StopList = defaults.StopList
	}
	return t, nil
}

// glossaryText renders the glossary as "term: explanation" lines in a
// stable order for prompt construction.
func (t Terms) glossaryText() string {
	keys := make([]string, 0, len(t.Glossary))
	for k := range t.Glossary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + t.Glossary[k]
	}
	return strings.Join(lines, "\n")
}

// stopped reports whether a keyword is on the stop-list,
// case-insensitively.
func (t Terms) stopped(keyword string) bool {
	for _, s := range t.StopList {
		if strings.EqualFold(s, keyword) {
			return true
		}
	}
	return false
}
