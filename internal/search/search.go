package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mohammad-safakhou/seeker/config"
	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/search/brave"
	"github.com/mohammad-safakhou/seeker/internal/search/models"
	"github.com/mohammad-safakhou/seeker/internal/search/rapid"
	"github.com/mohammad-safakhou/seeker/internal/search/serper"
)

// Searcher fetches organic and image results from one backend.
type Searcher interface {
	SearchWeb(ctx context.Context, q string, k int) ([]models.Result, error)
	SearchImages(ctx context.Context, q string, k int) ([]models.ImageResult, error)
}

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingQuery        = errors.New("search query is required")
)

// NewSearcher builds the provider named in cfg.
func NewSearcher(cfg config.SearchConfig) (Searcher, error) {
	switch cfg.Provider {
	case "serper":
		return serper.Search{APIKey: cfg.SerperAPIKey}, nil
	case "rapid":
		return rapid.Search{APIKey: cfg.RapidAPIKey}, nil
	case "brave":
		return brave.Search{APIKey: cfg.BraveAPIKey}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// Results bundles one round of web and image hits for a query.
type Results struct {
	Web    []models.Result      `json:"web"`
	Images []models.ImageResult `json:"images"`
}

// Cache stores one Results per normalized query. Gateway treats it as
// best-effort: cache errors never fail a search.
type Cache interface {
	Get(ctx context.Context, query string) (Results, bool)
	Set(ctx context.Context, query string, res Results)
}

// Metrics counts provider round trips. *telemetry.Telemetry satisfies it.
type Metrics interface {
	RecordSearch(provider string, success bool)
}

// Gateway runs web and image searches concurrently with a shared
// deadline and per-call retry. A failed image search never fails the
// round; a failed web search does.
type Gateway struct {
	searcher Searcher
	cache    Cache
	metrics  Metrics
	sink     activity.Sink
	logger   *log.Logger

	provider   string
	maxResults int
	timeout    time.Duration
	retries    int
	baseWait   time.Duration
	maxWait    time.Duration
}

func NewGateway(searcher Searcher, cfg config.SearchConfig, cache Cache, metrics Metrics, sink activity.Sink, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	if sink == nil {
		sink = activity.NopSink{}
	}
	cfg = cfg.Normalize()
	return &Gateway{
		searcher:   searcher,
		cache:      cache,
		metrics:    metrics,
		sink:       sink,
		logger:     logger,
		provider:   cfg.Provider,
		maxResults: cfg.MaxResults,
		timeout:    cfg.Timeout,
		retries:    cfg.MaxRetries,
		baseWait:   cfg.RetryBaseWait,
		maxWait:    cfg.RetryMaxWait,
	}
}

// Search fetches web and image results for query. Both calls share one
// deadline and run in parallel.
func (g *Gateway) Search(ctx context.Context, query string) (Results, error) {
	if strings.TrimSpace(query) == "" {
		return Results{}, ErrMissingQuery
	}

	if g.cache != nil {
		if cached, ok := g.cache.Get(ctx, query); ok {
			g.logger.Printf("cache hit for %q", query)
			activity.Emit(ctx, g.sink, activity.Event{Type: "Web Search", Status: "cached", Query: query})
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	activity.Emit(ctx, g.sink, activity.Event{Type: "Web Search", Status: "started", Query: query})

	var (
		wg      sync.WaitGroup
		res     Results
		webErr  error
		imgErr  error
		started = time.Now()
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		webErr = g.withRetry(ctx, "web", func() error {
			hits, err := g.searcher.SearchWeb(ctx, query, g.maxResults)
			if err != nil {
				return err
			}
			res.Web = hits
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		imgErr = g.withRetry(ctx, "image", func() error {
			hits, err := g.searcher.SearchImages(ctx, query, g.maxResults)
			if err != nil {
				return err
			}
			res.Images = hits
			return nil
		})
	}()
	wg.Wait()

	if webErr != nil {
		activity.Emit(ctx, g.sink, activity.Event{Type: "Web Search", Status: "failed", Query: query, Error: webErr.Error()})
		return Results{}, fmt.Errorf("web search: %w", webErr)
	}
	if imgErr != nil {
		// Images are decoration: log and move on with web results alone.
		g.logger.Printf("image search failed for %q: %v", query, imgErr)
		res.Images = nil
	}

	g.logger.Printf("search for %q: %d web, %d images in %s", query, len(res.Web), len(res.Images), time.Since(started).Round(time.Millisecond))
	activity.Emit(ctx, g.sink, activity.Event{Type: "Web Search", Status: "completed", Query: query, Metadata: map[string]any{
		"web_results":   len(res.Web),
		"image_results": len(res.Images),
	}})

	if g.cache != nil {
		g.cache.Set(ctx, query, res)
	}
	return res, nil
}

// withRetry retries fn on transient failures with capped exponential
// backoff. Fatal errors (auth, parse, 4xx) surface immediately.
func (g *Gateway) withRetry(ctx context.Context, kind string, fn func() error) error {
	var lastErr error
	tries := g.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		err := fn()
		if g.metrics != nil {
			g.metrics.RecordSearch(g.provider, err == nil)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}
		if attempt < tries-1 {
			wait := g.baseWait * time.Duration(1<<attempt)
			if wait > g.maxWait {
				wait = g.maxWait
			}
			g.logger.Printf("%s search attempt %d/%d failed (%v), retrying in %s", kind, attempt+1, tries, err, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// IsTransient reports whether err looks like a network blip worth
// retrying: timeouts, refused/reset connections, DNS failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.ENETUNREACH} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
