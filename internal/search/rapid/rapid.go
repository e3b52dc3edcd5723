package rapid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/mohammad-safakhou/seeker/internal/search/models"
)

const defaultURL = "https://duckduckgo-search-api.p.rapidapi.com"

var imageExt = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)(\?|$)`)

// Search queries a DuckDuckGo wrapper hosted on RapidAPI. The API has no
// dedicated image endpoint, so image search filters web hits that point
// straight at image assets.
type Search struct {
	APIKey  string
	Client  *http.Client
	BaseURL string
}

func (s Search) SearchWeb(ctx context.Context, q string, k int) ([]models.Result, error) {
	hits, err := s.query(ctx, q, k)
	if err != nil {
		return nil, err
	}
	var out []models.Result
	for i, h := range hits {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: h.Title, URL: h.Href, Snippet: h.Body})
	}
	return out, nil
}

func (s Search) SearchImages(ctx context.Context, q string, k int) ([]models.ImageResult, error) {
	hits, err := s.query(ctx, q+" images", k*3)
	if err != nil {
		return nil, err
	}
	var out []models.ImageResult
	for _, h := range hits {
		if len(out) >= k {
			break
		}
		if !imageExt.MatchString(h.Href) {
			continue
		}
		out = append(out, models.ImageResult{Title: h.Title, URL: h.Href})
	}
	return out, nil
}

type hit struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

func (s Search) query(ctx context.Context, q string, k int) ([]hit, error) {
	base := s.BaseURL
	if base == "" {
		base = defaultURL
	}
	u := fmt.Sprintf("%s/search?query=%s&max_results=%d", base, url.QueryEscape(q), k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", s.APIKey)
	req.Header.Set("X-RapidAPI-Host", "duckduckgo-search-api.p.rapidapi.com")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rapid: %s: %s", resp.Status, string(b))
	}
	var raw struct {
		Results []hit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Results, nil
}
