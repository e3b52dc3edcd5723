package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mohammad-safakhou/seeker/internal/search/models"
)

const (
	searchURL = "https://google.serper.dev/search"
	imagesURL = "https://google.serper.dev/images"
)

// Search queries the serper.dev Google wrapper.
type Search struct {
	APIKey  string
	Client  *http.Client
	BaseURL string // overrides both endpoints when set, for tests
}

func (s Search) SearchWeb(ctx context.Context, q string, k int) ([]models.Result, error) {
	raw, err := s.post(ctx, s.endpoint(searchURL, "/search"), q, k)
	if err != nil {
		return nil, err
	}
	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title: str(m["title"]), URL: str(m["link"]), Snippet: str(m["snippet"]),
			})
		}
	}
	return out, nil
}

func (s Search) SearchImages(ctx context.Context, q string, k int) ([]models.ImageResult, error) {
	raw, err := s.post(ctx, s.endpoint(imagesURL, "/images"), q, k)
	if err != nil {
		return nil, err
	}
	var out []models.ImageResult
	if items, ok := raw["images"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.ImageResult{
				Title: str(m["title"]), URL: str(m["imageUrl"]), ThumbnailURL: str(m["thumbnailUrl"]),
			})
		}
	}
	return out, nil
}

func (s Search) post(ctx context.Context, url, q string, k int) (map[string]any, error) {
	body, _ := json.Marshal(map[string]any{"q": q, "num": k})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("serper: %s: %s", resp.Status, string(b))
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s Search) endpoint(def, path string) string {
	if s.BaseURL != "" {
		return s.BaseURL + path
	}
	return def
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
