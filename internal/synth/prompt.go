package synth

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/seeker/internal/query"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
)

const (
	simpleMaxTokens = 600
	mediumMaxTokens = 1000
	deepMaxTokens   = 1500
	answerMaxTokens = 1024

	// Sources fed to the model per synthesis round.
	contextResults = 5
)

// MaxTokensFor scales the model budget with query complexity.
func MaxTokensFor(level query.Level) int {
	switch level {
	case query.LevelDeep:
		return deepMaxTokens
	case query.LevelMedium:
		return mediumMaxTokens
	default:
		return simpleMaxTokens
	}
}

const simpleSchema = `{
    "summary": "1-2 sentence direct answer",
    "keyPoints": ["key fact 1", "key fact 2"],
    "analysis": {
        "relevance": "how well results match query",
        "credibility": "basic source assessment"
    }
}`

const mediumSchema = `{
    "summary": "2-3 sentence overview with context",
    "keyPoints": ["point 1", "point 2", "point 3"],
    "analysis": {
        "contentQuality": "assessment of information quality",
        "credibility": "evaluation of source reliability",
        "relevance": "relevance and completeness",
        "insights": "notable findings or patterns"
    },
    "context": {
        "background": "relevant background information",
        "relatedTopics": ["related topic 1", "related topic 2"]
    }
}`

const deepSchema = `{
    "summary": "Short executive summary with key insight",
    "keyPoints": ["Insight 1", "Insight 2", "Insight 3", "Insight 4"],
    "analysis": {
        "depth": "depth of information",
        "accuracy": "accuracy and consistency of facts",
        "bias": "any noticeable bias in sources",
        "coverage": "how comprehensive the result set is",
        "comparisons": "differences among results"
    },
    "context": {
        "background": "brief background for better understanding",
        "relatedConcepts": ["concept 1", "concept 2"],
        "openQuestions": ["unanswered question 1", "further exploration 2"]
    },
    "recommendations": [
        "Specific recommendation 1",
        "Specific recommendation 2"
    ]
}`

// AnalysisPrompt builds the synthesis instruction for one query at one
// complexity level. The schema grows with the level so the model spends
// its budget where the query warrants it. content, when non-empty, is
// readable text pulled from the top source.
func AnalysisPrompt(q string, level query.Level, results []models.Result, content string) string {
	schema := simpleSchema
	style := "a concise analysis"
	switch level {
	case query.LevelMedium:
		schema = mediumSchema
		style = "a structured analysis"
	case query.LevelDeep:
		schema = deepSchema
		style = "an in-depth analytical response"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these search results for %q and provide %s in this JSON format:\n\n%s\n\n", q, style, schema)
	b.WriteString("Search Results to Analyze:\n")
	b.WriteString(FormatResults(results, contextResults))
	if content != "" {
		b.WriteString("\n\nFull content from the top source:\n")
		b.WriteString(content)
	}
	b.WriteString("\n\nEnsure the response is valid JSON that exactly matches the specified structure.")
	return b.String()
}

// AnswerPrompt builds the free-form instruction for the chat panel.
func AnswerPrompt(q string, results []models.Result) string {
	return fmt.Sprintf("Based on the following web search results, please provide a comprehensive answer to the user's question: %q\n\nWeb Search Results:\n%s\n\nPlease provide a well-structured response that directly answers the user's question using the information from the search results.",
		q, FormatResults(results, contextResults))
}

// ConversePrompt builds the instruction for a conversational reply.
// background, when non-empty, is reference material (an encyclopedia
// extract) the model can ground its answer in.
func ConversePrompt(q, background string) string {
	if background == "" {
		return q
	}
	return fmt.Sprintf("Reference material:\n%s\n\nUser message: %s", background, q)
}

// FormatResults renders the top k hits as a plain-text source list.
func FormatResults(results []models.Result, k int) string {
	if len(results) > k {
		results = results[:k]
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", r.Title, r.URL, r.Snippet))
	}
	return strings.Join(parts, "\n\n")
}
