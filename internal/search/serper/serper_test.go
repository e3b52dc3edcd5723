package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["q"] != "golang" {
			t.Errorf("unexpected query %v", payload["q"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"title": "The Go Programming Language", "link": "https://go.dev", "snippet": "Go is..."},
				{"title": "Go wiki", "link": "https://go.dev/wiki", "snippet": "Wiki"},
			},
		})
	}))
	defer srv.Close()

	s := Search{APIKey: "test-key", BaseURL: srv.URL}
	results, err := s.SearchWeb(context.Background(), "golang", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://go.dev" || results[0].Title != "The Go Programming Language" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
}

func TestSearchWebTruncatesToK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]any, 0, 10)
		for i := 0; i < 10; i++ {
			items = append(items, map[string]any{"title": "t", "link": "https://x", "snippet": "s"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": items})
	}))
	defer srv.Close()

	s := Search{APIKey: "k", BaseURL: srv.URL}
	results, err := s.SearchWeb(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestSearchImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]any{
				{"title": "gopher", "imageUrl": "https://img/gopher.png", "thumbnailUrl": "https://img/thumb.png"},
			},
		})
	}))
	defer srv.Close()

	s := Search{APIKey: "k", BaseURL: srv.URL}
	images, err := s.SearchImages(context.Background(), "gopher", 5)
	if err != nil {
		t.Fatalf("search images: %v", err)
	}
	if len(images) != 1 || images[0].ThumbnailURL != "https://img/thumb.png" {
		t.Fatalf("unexpected images: %+v", images)
	}
}

func TestSearchWebAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	s := Search{APIKey: "bad", BaseURL: srv.URL}
	if _, err := s.SearchWeb(context.Background(), "q", 2); err == nil {
		t.Fatalf("expected error on 403")
	}
}
