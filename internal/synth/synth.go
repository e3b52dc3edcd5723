package synth

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/llm"
	"github.com/mohammad-safakhou/seeker/internal/query"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
)

const synthesisTemperature = 0.7

// Status reports how a synthesis round ended.
type Status string

const (
	// StatusOK means the model returned a valid structured analysis.
	StatusOK Status = "ok"
	// StatusDegraded means the model replied but the reply did not
	// yield a valid analysis; RawText carries it verbatim.
	StatusDegraded Status = "degraded"
)

// Outcome is one synthesis round. Analysis is set when Status is
// StatusOK; RawText is always set to whatever the model produced.
type Outcome struct {
	Status   Status
	Analysis *Analysis
	RawText  string
}

// Synthesizer turns search results into structured analyses and
// free-form answers via an LLM.
type Synthesizer struct {
	provider llm.Provider
	model    string
	sink     activity.Sink
	logger   *log.Logger
}

func NewSynthesizer(provider llm.Provider, model string, sink activity.Sink, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNTH] ", log.LstdFlags)
	}
	if sink == nil {
		sink = activity.NopSink{}
	}
	return &Synthesizer{provider: provider, model: model, sink: sink, logger: logger}
}

// Synthesize asks the model for a structured analysis of the results.
// A reply that fails extraction degrades to raw text rather than
// failing the request; only a dead provider returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, q string, level query.Level, results []models.Result, content string) (Outcome, error) {
	activity.Emit(ctx, s.sink, activity.Event{Type: "AI Analysis", Status: "started", Query: q, Metadata: map[string]any{"level": string(level)}})

	raw, err := s.provider.Complete(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   MaxTokensFor(level),
		Temperature: synthesisTemperature,
		Messages:    []llm.Message{{Role: "user", Content: AnalysisPrompt(q, level, results, content)}},
	})
	if err != nil {
		activity.Emit(ctx, s.sink, activity.Event{Type: "AI Analysis", Status: "failed", Query: q, Error: err.Error()})
		return Outcome{}, fmt.Errorf("synthesis: %w", err)
	}

	analysis, perr := Parse(raw)
	if perr != nil {
		s.logger.Printf("analysis for %q degraded to raw text: %v", q, perr)
		activity.Emit(ctx, s.sink, activity.Event{Type: "AI Analysis", Status: "degraded", Query: q, Error: perr.Error()})
		return Outcome{Status: StatusDegraded, RawText: raw}, nil
	}

	activity.Emit(ctx, s.sink, activity.Event{Type: "AI Analysis", Status: "completed", Query: q})
	return Outcome{Status: StatusOK, Analysis: analysis, RawText: raw}, nil
}

// Answer produces the free-form chat-panel reply grounded in the
// search results.
func (s *Synthesizer) Answer(ctx context.Context, q string, results []models.Result) (string, error) {
	raw, err := s.provider.Complete(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   answerMaxTokens,
		Temperature: synthesisTemperature,
		Messages:    []llm.Message{{Role: "user", Content: AnswerPrompt(q, results)}},
	})
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return raw, nil
}

// Converse answers a conversational query directly, without searches.
// background, when non-empty, is reference material to ground the reply.
func (s *Synthesizer) Converse(ctx context.Context, q, background string) (string, error) {
	raw, err := s.provider.Complete(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   answerMaxTokens,
		Temperature: synthesisTemperature,
		Messages:    []llm.Message{{Role: "user", Content: ConversePrompt(q, background)}},
	})
	if err != nil {
		return "", fmt.Errorf("converse: %w", err)
	}
	return raw, nil
}
