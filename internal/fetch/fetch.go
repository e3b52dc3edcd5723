// Package fetch retrieves a web page and extracts its readable text so
// the model can ground answers in page content rather than snippets.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/seeker/internal/activity"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxChars = 8000
	userAgent       = "Mozilla/5.0 (compatible; seeker/1.0)"
)

// Page is one fetched and extracted document.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Text     string `json:"text"`
	TopImage string `json:"top_image,omitempty"`
}

// Fetcher downloads pages over plain HTTP and runs readability
// extraction. Construct once and reuse; it is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	sink     activity.Sink
	maxChars int
}

func NewFetcher(timeout time.Duration, maxChars int, sink activity.Sink) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	if sink == nil {
		sink = activity.NopSink{}
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		sink:     sink,
		maxChars: maxChars,
	}
}

// Fetch retrieves link and returns its readable content, capped at
// maxChars. Non-2xx statuses and extraction failures are errors; the
// caller decides whether a missing page sinks the request.
func (f *Fetcher) Fetch(ctx context.Context, link string) (Page, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Page{}, errors.New("fetch: empty url")
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Page{}, fmt.Errorf("fetch: invalid url %q", link)
	}

	activity.Emit(ctx, f.sink, activity.Event{Type: "Visiting Webpage", Status: "started", URL: link})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		activity.Emit(ctx, f.sink, activity.Event{Type: "Visiting Webpage", Status: "failed", URL: link, Error: err.Error()})
		return Page{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		activity.Emit(ctx, f.sink, activity.Event{Type: "Visiting Webpage", Status: "failed", URL: link, Error: resp.Status})
		return Page{}, fmt.Errorf("fetch %s: %s", link, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		activity.Emit(ctx, f.sink, activity.Event{Type: "Visiting Webpage", Status: "failed", URL: link, Error: err.Error()})
		return Page{}, fmt.Errorf("extract %s: %w", link, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.maxChars {
		text = text[:f.maxChars]
	}

	activity.Emit(ctx, f.sink, activity.Event{Type: "Visiting Webpage", Status: "completed", URL: link, Metadata: map[string]any{
		"chars": len(text),
	}})
	return Page{
		URL:      link,
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		Text:     text,
		TopImage: article.Image,
	}, nil
}
