// Package pipeline runs one query end to end: validation, triage,
// concurrent search, synthesis, and assembly into renderable output.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/assemble"
	"github.com/mohammad-safakhou/seeker/internal/classify"
	"github.com/mohammad-safakhou/seeker/internal/fetch"
	"github.com/mohammad-safakhou/seeker/internal/format"
	"github.com/mohammad-safakhou/seeker/internal/query"
	"github.com/mohammad-safakhou/seeker/internal/search"
	"github.com/mohammad-safakhou/seeker/internal/store"
	"github.com/mohammad-safakhou/seeker/internal/synth"
	"github.com/mohammad-safakhou/seeker/internal/telemetry"
)

var tracer trace.Tracer = otel.Tracer("seeker/internal/pipeline")

// Searcher is the slice of the search gateway the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, q string) (search.Results, error)
}

// Reader pulls readable page content. Deep rounds read the top web hit
// so synthesis sees more than a snippet.
type Reader interface {
	Fetch(ctx context.Context, link string) (fetch.Page, error)
}

// History receives completed rounds. Saves are best-effort.
type History interface {
	SaveQuery(ctx context.Context, rec store.QueryRecord) (string, error)
}

// Pipeline wires the triage, search, and synthesis stages together.
type Pipeline struct {
	decider   classify.Decider
	searcher  Searcher
	synth     *synth.Synthesizer
	reader    Reader
	history   History
	telemetry *telemetry.Telemetry
	sink      activity.Sink
	logger    *log.Logger
}

func New(decider classify.Decider, searcher Searcher, synthesizer *synth.Synthesizer, reader Reader, history History, tel *telemetry.Telemetry, sink activity.Sink, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	if sink == nil {
		sink = activity.NopSink{}
	}
	return &Pipeline{
		decider:   decider,
		searcher:  searcher,
		synth:     synthesizer,
		reader:    reader,
		history:   history,
		telemetry: tel,
		sink:      sink,
		logger:    logger,
	}
}

// Round is the complete outcome of one query.
type Round struct {
	Query          string
	Assessment     query.Assessment
	Conversational bool
	FutureYear     bool
	Answer         string // conversational / chat-panel reply
	Outcome        synth.Outcome
	Results        search.Results
	Duration       time.Duration
}

// Run processes one raw query through the full pipeline. Classification
// and synthesis failures degrade the round; only validation and web
// search failures surface as errors.
func (p *Pipeline) Run(ctx context.Context, raw string) (Round, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	started := time.Now()

	q, err := query.Validate(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Round{}, err
	}
	span.SetAttributes(attribute.String("query", q))

	if year, ok := format.FutureYear(q, time.Now()); ok {
		p.logger.Printf("query %q asks about future year %d", q, year)
		round := Round{
			Query:      q,
			FutureYear: true,
			Answer:     format.FutureYearReply(year, time.Now()),
			Duration:   time.Since(started),
		}
		p.record(ctx, round, true)
		return round, nil
	}

	if p.decider.IsConversational(ctx, q) {
		return p.runConversational(ctx, q, started)
	}
	return p.runSearch(ctx, q, started)
}

func (p *Pipeline) runConversational(ctx context.Context, q string, started time.Time) (Round, error) {
	ctx, span := tracer.Start(ctx, "pipeline.conversational")
	defer span.End()

	activity.Emit(ctx, p.sink, activity.Event{Type: "AI Response", Status: "started", Query: q})
	answer, err := p.synth.Converse(ctx, q, "")
	if err != nil {
		// A dead model leaves nothing to show for a conversational query.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		activity.Emit(ctx, p.sink, activity.Event{Type: "AI Response", Status: "failed", Query: q, Error: err.Error()})
		p.recordFailure(q, "", time.Since(started))
		return Round{}, fmt.Errorf("conversational reply: %w", err)
	}

	round := Round{
		Query:          q,
		Conversational: true,
		Answer:         format.Structure(answer),
		Duration:       time.Since(started),
	}
	activity.Emit(ctx, p.sink, activity.Event{Type: "AI Response", Status: "completed", Query: q})
	p.record(ctx, round, true)
	return round, nil
}

func (p *Pipeline) runSearch(ctx context.Context, q string, started time.Time) (Round, error) {
	ctx, span := tracer.Start(ctx, "pipeline.search")
	defer span.End()

	assessment := query.Score(q)
	p.logger.Printf("query %q scored %d (%s), triggers=%v", q, assessment.Score, assessment.Level, assessment.Triggers)
	span.SetAttributes(
		attribute.Int("complexity.score", assessment.Score),
		attribute.String("complexity.level", string(assessment.Level)),
	)

	// The deterministic score leads; the model can still promote a
	// borderline query to the deep path.
	if assessment.Level == query.LevelMedium && p.decider.NeedsDeepAnalysis(ctx, q) {
		p.logger.Printf("query %q promoted to deep analysis", q)
		assessment.Level = query.LevelDeep
	}

	results, err := p.searcher.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.recordFailure(q, string(assessment.Level), time.Since(started))
		return Round{Query: q, Assessment: assessment}, fmt.Errorf("search: %w", err)
	}

	// Deep rounds read the top source in full so the model analyzes
	// more than snippets. A failed fetch costs nothing.
	var content string
	if p.reader != nil && assessment.Level == query.LevelDeep && len(results.Web) > 0 {
		page, ferr := p.reader.Fetch(ctx, results.Web[0].URL)
		if ferr != nil {
			p.logger.Printf("page read for %q failed: %v", q, ferr)
		} else {
			content = page.Text
		}
	}

	outcome, err := p.synth.Synthesize(ctx, q, assessment.Level, results.Web, content)
	if err != nil {
		// Keep the search results: a dead model degrades the round
		// to raw sources instead of erasing it.
		p.logger.Printf("synthesis failed for %q, serving raw results: %v", q, err)
		span.RecordError(err)
		outcome = synth.Outcome{Status: synth.StatusDegraded}
	}

	round := Round{
		Query:      q,
		Assessment: assessment,
		Outcome:    outcome,
		Results:    results,
		Duration:   time.Since(started),
	}
	span.SetStatus(codes.Ok, "completed")
	p.record(ctx, round, true)
	return round, nil
}

// Page renders a round into the template payload.
func (p *Pipeline) Page(round Round) assemble.Page {
	return assemble.BuildPage(round.Query, round.Assessment, round.Outcome, round.Results)
}

func (p *Pipeline) record(ctx context.Context, round Round, success bool) {
	if p.telemetry != nil {
		p.telemetry.RecordQuery(telemetry.QueryEvent{
			Route:          "search",
			Level:          string(round.Assessment.Level),
			Success:        success,
			Conversational: round.Conversational,
			Degraded:       round.Outcome.Status == synth.StatusDegraded,
			Duration:       round.Duration,
		})
	}
	if p.history == nil {
		return
	}
	rec := store.QueryRecord{
		Query:          round.Query,
		Level:          string(round.Assessment.Level),
		Score:          round.Assessment.Score,
		Conversational: round.Conversational,
		Degraded:       round.Outcome.Status == synth.StatusDegraded,
		WebResults:     len(round.Results.Web),
		ImageResults:   len(round.Results.Images),
		Duration:       round.Duration,
	}
	if round.Outcome.Analysis != nil {
		rec.Summary = round.Outcome.Analysis.Summary
	}
	if _, err := p.history.SaveQuery(ctx, rec); err != nil {
		p.logger.Printf("history save failed: %v", err)
	}
}

func (p *Pipeline) recordFailure(q, level string, duration time.Duration) {
	if p.telemetry != nil {
		p.telemetry.RecordQuery(telemetry.QueryEvent{Route: "search", Level: level, Success: false, Duration: duration})
	}
}
