package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mohammad-safakhou/seeker/internal/search/models"
)

const (
	webURL    = "https://api.search.brave.com/res/v1/web/search"
	imagesURL = "https://api.search.brave.com/res/v1/images/search"
)

// Search queries the Brave Search API.
// https://api.search.brave.com/app/documentation/web-search
type Search struct {
	APIKey  string
	Client  *http.Client
	BaseURL string // overrides both endpoints when set, for tests
}

func (s Search) SearchWeb(ctx context.Context, q string, k int) ([]models.Result, error) {
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.get(ctx, s.endpoint(webURL, "/res/v1/web/search"), q, k, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}

func (s Search) SearchImages(ctx context.Context, q string, k int) ([]models.ImageResult, error) {
	var raw struct {
		Results []struct {
			Title     string `json:"title"`
			URL       string `json:"url"`
			Thumbnail struct {
				Src string `json:"src"`
			} `json:"thumbnail"`
		} `json:"results"`
	}
	if err := s.get(ctx, s.endpoint(imagesURL, "/res/v1/images/search"), q, k, &raw); err != nil {
		return nil, err
	}
	var out []models.ImageResult
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.ImageResult{Title: r.Title, URL: r.URL, ThumbnailURL: r.Thumbnail.Src})
	}
	return out, nil
}

func (s Search) get(ctx context.Context, endpoint, q string, k int, out any) error {
	u := fmt.Sprintf("%s?q=%s&count=%d", endpoint, url.QueryEscape(q), k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.APIKey)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brave: %s: %s", resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s Search) endpoint(def, path string) string {
	if s.BaseURL != "" {
		return s.BaseURL + path
	}
	return def
}
