package classify

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/seeker/internal/llm"
)

// Kind is the broad routing decision for an incoming query.
type Kind string

const (
	KindConversational Kind = "conversational"
	KindSearch         Kind = "search"
)

// Depth is the analysis mode a search query warrants.
type Depth string

const (
	DepthSimple Depth = "simple"
	DepthDeep   Depth = "deep"
)

const (
	kindSystemPrompt = `You are a query classifier. Determine whether the user's message is conversational (greetings, small talk, questions about you, thanks, chit-chat) or a search query (asking for information, facts, explanations, comparisons, news). Respond with exactly one word: "conversational" or "search". No other text.`

	depthSystemPrompt = `You are a query classifier. Determine whether the query needs deep multi-source analysis ("analyze") or a quick factual answer ("simple"). Queries that compare things, ask why or how, request evaluation, research, trends, or implications need analysis. Respond with exactly one word: "analyze" or "simple". No other text.`

	classifyMaxTokens = 50
)

// searchSignals marks queries that must hit live search even if the model
// reads them as chit-chat: anything time-sensitive is never conversational.
var searchSignals = regexp.MustCompile(`(?i)\b(latest|news|current|today|breaking|trending|recent|update|live)\b`)

var conversationalPhrases = []string{
	"hello", "hi", "hey", "how are you", "who are you", "what are you",
	"thank you", "thanks", "good morning", "good evening", "bye", "goodbye",
}

// Decider answers the two routing questions for a query. Implementations
// may consult a model, heuristics, or both.
type Decider interface {
	// IsConversational reports whether the query should be answered
	// directly without running searches.
	IsConversational(ctx context.Context, query string) bool
	// NeedsDeepAnalysis reports whether the query warrants the
	// multi-source analysis path.
	NeedsDeepAnalysis(ctx context.Context, query string) bool
}

// LLMDecider asks a model and falls back to heuristics when the call
// fails or returns an unexpected token.
type LLMDecider struct {
	provider llm.Provider
	model    string
	logger   *log.Logger
}

func NewLLMDecider(provider llm.Provider, model string, logger *log.Logger) *LLMDecider {
	if logger == nil {
		logger = log.New(log.Writer(), "[CLASSIFY] ", log.LstdFlags)
	}
	return &LLMDecider{provider: provider, model: model, logger: logger}
}

func (d *LLMDecider) IsConversational(ctx context.Context, query string) bool {
	if searchSignals.MatchString(query) {
		return false
	}
	answer, err := d.ask(ctx, kindSystemPrompt, query)
	if err != nil {
		d.logger.Printf("kind classification failed, falling back to heuristics: %v", err)
		return HeuristicDecider{}.IsConversational(ctx, query)
	}
	switch answer {
	case "conversational":
		return true
	case "search":
		return false
	default:
		// Unknown token: treat as search so the user still gets sources.
		d.logger.Printf("unexpected kind token %q, routing to search", answer)
		return false
	}
}

func (d *LLMDecider) NeedsDeepAnalysis(ctx context.Context, query string) bool {
	answer, err := d.ask(ctx, depthSystemPrompt, query)
	if err != nil {
		d.logger.Printf("depth classification failed, falling back to heuristics: %v", err)
		return HeuristicDecider{}.NeedsDeepAnalysis(ctx, query)
	}
	// Only an explicit "analyze" turns on the expensive path.
	return answer == "analyze"
}

func (d *LLMDecider) ask(ctx context.Context, system, query string) (string, error) {
	resp, err := d.provider.Complete(ctx, llm.Request{
		Model:       d.model,
		MaxTokens:   classifyMaxTokens,
		Temperature: 0,
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: query}},
	})
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(resp)), nil
}

// HeuristicDecider classifies with patterns alone. It backs LLMDecider and
// serves deployments with no model configured.
type HeuristicDecider struct{}

var deepSignals = regexp.MustCompile(`(?i)\b(compare|versus|vs\.?|why|how does|how do|analyz|evaluat|research|trend|implication|impact|difference|pros and cons)\b`)

func (HeuristicDecider) IsConversational(_ context.Context, query string) bool {
	if searchSignals.MatchString(query) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	for _, phrase := range conversationalPhrases {
		if q == phrase || strings.HasPrefix(q, phrase+" ") || strings.HasPrefix(q, phrase+",") || strings.HasPrefix(q, phrase+"!") {
			return true
		}
	}
	return false
}

func (HeuristicDecider) NeedsDeepAnalysis(_ context.Context, query string) bool {
	return deepSignals.MatchString(query)
}
