package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/assemble"
	"github.com/mohammad-safakhou/seeker/internal/format"
	"github.com/mohammad-safakhou/seeker/internal/query"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
	"github.com/mohammad-safakhou/seeker/internal/slides"
	"github.com/mohammad-safakhou/seeker/internal/synth"
	"github.com/mohammad-safakhou/seeker/internal/telemetry"
)

var handlerTracer trace.Tracer = otel.Tracer("seeker/internal/server")

// indexData is the template payload for the search page. Result is nil
// until a search has run; Answer carries conversational replies.
type indexData struct {
	Query  string
	Answer string
	Error  string
	Result *assemble.Result
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, "index", indexData{})
}

func (s *Server) handleTerminalDemo(c echo.Context) error {
	return c.Render(http.StatusOK, "terminal-demo", nil)
}

// handleSearch serves the HTML form flow. Pipeline failures degrade to
// an error page with whatever results survived; they never 500 the
// browser out of the page.
func (s *Server) handleSearch(c echo.Context) error {
	ctx, span := handlerTracer.Start(c.Request().Context(), "http.search")
	defer span.End()

	raw := c.FormValue("query")
	span.SetAttributes(attribute.String("query", raw))

	round, err := s.pipeline.Run(ctx, raw)
	if err != nil {
		if errors.Is(err, query.ErrEmpty) || errors.Is(err, query.ErrTooLong) {
			return s.renderIndex(c, http.StatusBadRequest, indexData{Query: raw, Error: err.Error()})
		}
		page := assemble.BuildErrorPage(round.Query, "Error: "+err.Error()+". Please try again later.", round.Results)
		return s.renderIndex(c, http.StatusOK, indexData{Query: round.Query, Error: page.Result.Error, Result: &page.Result})
	}

	if round.Conversational || round.FutureYear {
		return s.renderIndex(c, http.StatusOK, indexData{Query: round.Query, Answer: round.Answer})
	}

	page := s.pipeline.Page(round)
	return s.renderIndex(c, http.StatusOK, indexData{Query: round.Query, Result: &page.Result})
}

// renderIndex renders through a buffer so a template failure can still
// produce a useful degraded response instead of a half-written page.
func (s *Server) renderIndex(c echo.Context, code int, data indexData) error {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "index", data); err != nil {
		s.logger.Printf("template render failed for %q: %v", data.Query, err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "Failed to display results: " + err.Error(),
			"query": data.Query,
		})
	}
	return c.HTMLBlob(code, buf.Bytes())
}

type analyzeRequest struct {
	Query string `json:"query"`
}

// handleAnalyze serves the JSON API used by the terminal UI. A recorder
// shadows the websocket feed so the response can carry the activity log.
func (s *Server) handleAnalyze(c echo.Context) error {
	ctx, span := handlerTracer.Start(c.Request().Context(), "http.analyze")
	defer span.End()

	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec := activity.NewRecorder(nil)
	ctx = activity.WithObserver(ctx, rec)

	round, err := s.pipeline.Run(ctx, req.Query)
	if err != nil {
		if errors.Is(err, query.ErrEmpty) || errors.Is(err, query.ErrTooLong) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	if round.Conversational || round.FutureYear {
		resp := assemble.BuildConversationalResponse(round.Answer)
		resp.WebActivity = rec.Events()
		return c.JSON(http.StatusOK, resp)
	}

	// The chat panel wants prose alongside the structured card. A
	// failed answer falls back to a count of what search found.
	answer, err := s.synth.Answer(ctx, round.Query, round.Results.Web)
	if err != nil {
		s.logger.Printf("chat answer failed for %q: %v", round.Query, err)
		answer = "I found " + strconv.Itoa(len(round.Results.Web)) + " web results for your query. You can view them in the panel on the right."
	} else {
		answer = format.Structure(answer)
	}

	needsAnalysis := round.Assessment.Level == query.LevelDeep
	resp := assemble.BuildAPIResponse(answer, round.Outcome.Analysis, needsAnalysis, round.Results)
	resp.WebActivity = rec.Events()
	return c.JSON(http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response    string           `json:"response"`
	WebActivity []activity.Event `json:"webActivity"`
}

// handleChat answers free-form messages without touching the search
// providers. A background lookup grounds the reply when an article
// matches; the response carries the activity log for the message.
func (s *Server) handleChat(c echo.Context) error {
	ctx, span := handlerTracer.Start(c.Request().Context(), "http.chat")
	defer span.End()

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg, err := query.Validate(req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec := activity.NewRecorder(nil)
	ctx = activity.WithObserver(ctx, rec)

	started := time.Now()
	background := s.lookupBackground(ctx, msg)
	reply, err := s.synth.Converse(ctx, msg, background)
	if err != nil {
		s.recordChat(false, time.Since(started))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	s.recordChat(true, time.Since(started))
	return c.JSON(http.StatusOK, chatResponse{
		Response:    format.Structure(reply),
		WebActivity: rec.Events(),
	})
}

// lookupBackground fetches an encyclopedia summary for the message, if
// one exists. Misses are routine and only show up in the activity log.
func (s *Server) lookupBackground(ctx context.Context, msg string) string {
	if s.wiki == nil {
		return ""
	}
	activity.Emit(ctx, s.hub, activity.Event{Type: "Wikipedia Search", Status: "started", Query: msg})
	sum, err := s.wiki.Lookup(ctx, msg)
	if err != nil {
		activity.Emit(ctx, s.hub, activity.Event{Type: "Wikipedia Search", Status: "failed", Query: msg, Error: err.Error()})
		return ""
	}
	activity.Emit(ctx, s.hub, activity.Event{Type: "Wikipedia Search", Status: "completed", Query: msg, URL: sum.URL})
	return sum.Extract
}

func (s *Server) recordChat(success bool, duration time.Duration) {
	if s.telemetry != nil {
		s.telemetry.RecordQuery(telemetry.QueryEvent{Route: "chat", Success: success, Conversational: true, Duration: duration})
	}
}

type slidesRequest struct {
	Query            string              `json:"query"`
	LLMResponse      string              `json:"llmResponse"`
	AnalysisResponse *synth.Analysis     `json:"analysisResponse"`
	WebResults       []slidesWebResult   `json:"webResults"`
	ImageResults     []slidesImageResult `json:"imageResults"`
	Timestamp        time.Time           `json:"timestamp"`
}

type slidesWebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type slidesImageResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// handleDownloadSlides exports a finished round as a downloadable deck.
func (s *Server) handleDownloadSlides(c echo.Context) error {
	var req slidesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	deck := slides.Deck{
		Query:       req.Query,
		LLMResponse: req.LLMResponse,
		Analysis:    req.AnalysisResponse,
		Timestamp:   req.Timestamp,
	}
	for _, r := range req.WebResults {
		deck.WebResults = append(deck.WebResults, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	for _, r := range req.ImageResults {
		deck.ImageResults = append(deck.ImageResults, models.ImageResult{Title: r.Title, URL: r.URL})
	}

	html, err := slides.Render(deck)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate slides")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+slides.Filename(req.Query)+`"`)
	return c.HTML(http.StatusOK, html)
}

func (s *Server) handleTerminalSocket(c echo.Context) error {
	return s.hub.Serve(c.Response(), c.Request())
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "query history is not configured")
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 200")
		}
		limit = n
	}
	recs, err := s.history.RecentQueries(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"history": recs})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.telemetry.GetSnapshot())
}
