package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JacekAdamczyk/paragonBot/internal/models"
)

// ResponseCharBudget is the platform's hard message length limit.
// Callers that add their own framing to a Result.Text must re-truncate
// the assembled message against it.
const ResponseCharBudget = 2000

const moreResultsNote = "More results available..."

// uuidRe pulls material identifiers out of the oracle's free-text
// relevance answer.
var uuidRe = regexp.MustCompile(`\b[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}\b`)

func extractIDs(text string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range uuidRe.FindAllString(strings.ToLower(text), -1) {
		ids[id] = struct{}{}
	}
	return ids
}

// buildFilterPrompt lists every candidate with its id, summary, content,
// keywords and author, and asks the oracle to echo the relevant ids.
func buildFilterPrompt(query string, candidates []*models.Material) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following list of educational materials, provide the ones that best match the query: %q\n\n", query)
	b.WriteString("Each material is described with an ID, summary, content, keywords, and author.\n\nMaterials:\n")

	for i, m := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "ID: %s\nSummary: %s\nContent: %s\nKeywords: %s\nAuthor: %s",
			m.ID, m.Summary, m.ContentText(), strings.Join(m.Keywords, ", "), m.Author)
	}

	fmt.Fprintf(&b, "\n\nQuery: %q\n\nPlease list the IDs of the most relevant materials.", query)
	return b.String()
}

// DeepLink builds the jump link to the material's first message.
func DeepLink(m *models.Material, guildID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, m.ChannelID, m.FirstMessageID())
}

func deepLinks(materials []*models.Material, guildID string) []string {
	links := make([]string, len(materials))
	for i, m := range materials {
		links[i] = DeepLink(m, guildID)
	}
	return links
}

// renderResults formats the surfaced materials, appends the truncation
// note when stage 3 produced more than fits, and enforces the character
// budget.
func renderResults(materials []*models.Material, guildID string, truncated bool) string {
	blocks := make([]string, len(materials))
	for i, m := range materials {
		blocks[i] = fmt.Sprintf("**%s:**\n%s\nLink: %s", m.Description, m.Summary, DeepLink(m, guildID))
	}

	text := strings.Join(blocks, "\n\n")
	if truncated {
		text += "\n\n" + moreResultsNote
	}
	return Truncate(text, ResponseCharBudget)
}

// Truncate caps text at limit runes, ellipsis included.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
