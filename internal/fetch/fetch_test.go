package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Go Concurrency Patterns</title></head>
<body><article>
<h1>Go Concurrency Patterns</h1>
<p>Goroutines are lightweight threads managed by the Go runtime. They make it
practical to structure a program as a set of independently executing functions.</p>
<p>Channels connect goroutines and carry values between them, letting one
goroutine signal another without explicit locks.</p>
</article></body></html>`

func TestFetchExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "seeker") {
			t.Errorf("missing user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0, nil)
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(page.Title, "Go Concurrency Patterns") {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if !strings.Contains(page.Text, "Goroutines are lightweight") {
		t.Fatalf("body text not extracted: %q", page.Text)
	}
}

func TestFetchCapsText(t *testing.T) {
	long := strings.Repeat("All work and no play makes a dull page. ", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>Long</title></head><body><article><p>" + long + "</p></article></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 100, nil)
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Text) > 100 {
		t.Fatalf("text not capped: %d chars", len(page.Text))
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0, nil)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	f := NewFetcher(5*time.Second, 0, nil)
	for _, link := range []string{"", "   ", "ftp://example.com/x", "not a url at all\x00"} {
		if _, err := f.Fetch(context.Background(), link); err == nil {
			t.Fatalf("expected error for %q", link)
		}
	}
}
