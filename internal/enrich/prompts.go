package enrich

import "fmt"

const (
	summaryMaxTokens     = 150
	keywordMaxTokens     = 50
	descriptionMaxTokens = 50
	maxKeywords          = 12
)

func summaryPrompt(glossary string) string {
	return fmt.Sprintf(`You are an assistant that summarizes trading-related content for indexing and search purposes.
Your summaries should be concise but informative enough to understand the main points and context.
The following terms are important and their meanings should be taken into account:
%s
Consider the following examples:
Example 1: "A detailed analysis of market trends and trading strategies."
Example 2: "Insights on the psychological aspects of trading and risk management."
Summarize the following text accordingly:`, glossary)
}

func keywordPrompt(glossary string, stopList []string) string {
	exclusions := ""
	for i, s := range stopList {
		if i > 0 {
			exclusions += ", "
		}
		exclusions += `"` + s + `"`
	}
	return fmt.Sprintf(`You are an assistant that extracts keywords for trading-related content to optimize search indexing, semantic search, AI search.
Extract relevant keywords, including synonyms and related terms, to enhance searchability.
The following terms are important and their meanings should be taken into account:
%s
Exclude generic terms like %s
Consider the following examples for guidance:
Example 1: "market trends, trading strategies, risk management, psychology, analysis, video"
Example 2: "technical analysis, emotional control, weekend price action, spot play, EMAs, order blocks"
Example 3: "psychology, motivation, wellbeing, longevity"
Example 4: "vwap, scalping, liquidations, composite framework, heatmaps, liquidity"
Extract keywords from the following text.
Keywords should be listed, separated by a comma, maximum %d keywords:`, glossary, exclusions, maxKeywords)
}

const descriptionPrompt = `Write a 2-4 words summary of what is found in this content. If possible use only words that are used in the message itself. You can reuse them verbatim.`
