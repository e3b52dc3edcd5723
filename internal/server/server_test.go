package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/seeker/config"
	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/classify"
	"github.com/mohammad-safakhou/seeker/internal/llm"
	"github.com/mohammad-safakhou/seeker/internal/pipeline"
	"github.com/mohammad-safakhou/seeker/internal/search"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
	"github.com/mohammad-safakhou/seeker/internal/synth"
	"github.com/mohammad-safakhou/seeker/internal/telemetry"
	"github.com/mohammad-safakhou/seeker/internal/wiki"
)

type fakeLLM struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}
func (f *fakeLLM) SupportedModels() []string { return []string{"m"} }

type fakeSearcher struct {
	results search.Results
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (search.Results, error) {
	activity.Emit(ctx, nil, activity.Event{Type: "Web Search", Status: "completed", Query: query})
	return f.results, f.err
}

const goodAnalysis = "```json\n" + `{"summary": "the answer", "keyPoints": ["a", "b"]}` + "\n```"

func defaultResults() search.Results {
	return search.Results{
		Web:    []models.Result{{Title: "Result One", URL: "https://one.example", Snippet: "first hit"}},
		Images: []models.ImageResult{{Title: "pic", URL: "https://img.example/p.png"}},
	}
}

func newTestServer(t *testing.T, provider llm.Provider, searcher pipeline.Searcher) (*Server, *echo.Echo) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	hub := activity.NewHub(logger)
	synthesizer := synth.NewSynthesizer(provider, "m", hub, logger)
	tel := telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true}, logger)
	pipe := pipeline.New(classify.HeuristicDecider{}, searcher, synthesizer, nil, nil, tel, hub, logger)
	s := &Server{
		cfg:       &config.Config{},
		pipeline:  pipe,
		synth:     synthesizer,
		hub:       hub,
		telemetry: tel,
		logger:    logger,
	}
	e := echo.New()
	s.register(e, config.ServerConfig{}.Normalize())
	return s, e
}

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandleIndex(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="query"`) {
		t.Fatalf("index page must carry the search form")
	}
}

func TestHandleSearchRendersResults(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	rec := postForm(e, "/search", url.Values{"query": {"what is the price of gold"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "the answer") {
		t.Fatalf("summary missing from page: %s", body)
	}
	if !strings.Contains(body, "https://one.example") {
		t.Fatalf("sources missing from page")
	}
}

func TestHandleSearchEmptyQuery(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	rec := postForm(e, "/search", url.Values{"query": {"   "}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearchLongQuery(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	rec := postForm(e, "/search", url.Values{"query": {strings.Repeat("x", 301)}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	rec := postJSON(e, "/analyze", `{"query": "what is the price of gold"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		WebResults       []map[string]any `json:"webResults"`
		ImageResults     []map[string]any `json:"imageResults"`
		LLMResponse      string           `json:"llmResponse"`
		AnalysisResponse *synth.Analysis  `json:"analysisResponse"`
		IsConversational bool             `json:"isConversational"`
		WebActivity      []activity.Event `json:"webActivity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsConversational {
		t.Fatalf("factual query flagged conversational")
	}
	if len(resp.WebResults) != 1 || resp.LLMResponse == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.AnalysisResponse == nil || resp.AnalysisResponse.Summary != "the answer" {
		t.Fatalf("analysis missing: %+v", resp.AnalysisResponse)
	}
	// The round searched and synthesized, so the activity log must
	// carry both stages.
	var sawSearch, sawAnalysis bool
	for _, ev := range resp.WebActivity {
		switch ev.Type {
		case "Web Search":
			sawSearch = true
		case "AI Analysis":
			sawAnalysis = true
		}
	}
	if !sawSearch || !sawAnalysis {
		t.Fatalf("activity log incomplete: %+v", resp.WebActivity)
	}
}

func TestHandleAnalyzeConversational(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: "Hi! What can I do for you?"}, &fakeSearcher{results: defaultResults()})
	rec := postJSON(e, "/analyze", `{"query": "hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		IsConversational bool   `json:"isConversational"`
		LLMResponse      string `json:"llmResponse"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsConversational {
		t.Fatalf("greeting should short-circuit to conversational")
	}
	if !strings.Contains(resp.LLMResponse, "Hi! What can I do for you?") {
		t.Fatalf("reply lost: %q", resp.LLMResponse)
	}
}

func TestHandleAnalyzeBadQuery(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	if rec := postJSON(e, "/analyze", `{"query": ""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := postJSON(e, "/analyze", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandleChat(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: "Background: context\n- point one"}, &fakeSearcher{})
	rec := postJSON(e, "/chat", `{"message": "tell me a joke"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Response    string           `json:"response"`
		WebActivity []activity.Event `json:"webActivity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Response, "## Background:") {
		t.Fatalf("chat reply should be structured: %q", resp.Response)
	}
	if resp.WebActivity == nil {
		t.Fatalf("chat response must carry an activity log, even when empty")
	}
}

func TestHandleChatGroundsReplyAndLogsActivity(t *testing.T) {
	wikiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/page/summary/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "Gravity",
			"extract": "Gravity is a fundamental interaction.",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Gravity"}}
		}`))
	}))
	defer wikiSrv.Close()

	model := &fakeLLM{reply: "Gravity pulls things together."}
	s, e := newTestServer(t, model, &fakeSearcher{})
	s.wiki = wiki.NewClientWithBaseURL(wikiSrv.URL, 0)

	rec := postJSON(e, "/chat", `{"message": "gravity"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Response    string           `json:"response"`
		WebActivity []activity.Event `json:"webActivity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(model.last.Messages[0].Content, "Gravity is a fundamental interaction.") {
		t.Fatalf("reply must be grounded in the article extract: %q", model.last.Messages[0].Content)
	}
	var completed bool
	for _, ev := range resp.WebActivity {
		if ev.Type == "Wikipedia Search" && ev.Status == "completed" {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("activity log must record the lookup: %+v", resp.WebActivity)
	}
}

func TestHandleDownloadSlides(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{})
	rec := postJSON(e, "/download-slides", `{
		"query": "go concurrency",
		"llmResponse": "prose",
		"analysisResponse": {"summary": "s", "keyPoints": ["k"]},
		"webResults": [{"title": "t", "url": "https://u", "snippet": "s"}],
		"imageResults": [{"title": "i", "url": "https://i.png"}]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "go_concurrency_slides.html") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "go concurrency") {
		t.Fatalf("deck missing query")
	}
}

func TestHandleDownloadSlidesRequiresQuery(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{})
	if rec := postJSON(e, "/download-slides", `{"llmResponse": "x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleHistoryUnconfigured(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a database, got %d", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{results: defaultResults()})
	postJSON(e, "/analyze", `{"query": "what is the price of gold"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap telemetry.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.TotalQueries == 0 {
		t.Fatalf("stats should reflect processed queries")
	}
}

func TestHealthz(t *testing.T) {
	_, e := newTestServer(t, &fakeLLM{reply: goodAnalysis}, &fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}
