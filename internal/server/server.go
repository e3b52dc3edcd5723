// Package server exposes the query pipeline over HTTP: an HTML search
// page, a JSON API, and a websocket activity feed for the terminal UI.
package server

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/seeker/config"
	"github.com/mohammad-safakhou/seeker/internal/activity"
	"github.com/mohammad-safakhou/seeker/internal/classify"
	"github.com/mohammad-safakhou/seeker/internal/fetch"
	"github.com/mohammad-safakhou/seeker/internal/llm"
	"github.com/mohammad-safakhou/seeker/internal/pipeline"
	"github.com/mohammad-safakhou/seeker/internal/search"
	"github.com/mohammad-safakhou/seeker/internal/store"
	"github.com/mohammad-safakhou/seeker/internal/synth"
	"github.com/mohammad-safakhou/seeker/internal/telemetry"
	"github.com/mohammad-safakhou/seeker/internal/wiki"
)

// Server holds the wired dependencies behind the HTTP handlers.
type Server struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	synth     *synth.Synthesizer
	hub       *activity.Hub
	wiki      *wiki.Client
	history   *store.Store
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

type renderer struct {
	templates *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Run builds the full dependency graph from cfg and serves until the
// listener fails.
func Run(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	hub := activity.NewHub(log.New(log.Writer(), "[WS] ", log.LstdFlags))
	tel := telemetry.NewTelemetry(cfg.Telemetry, nil)

	classifyProvider, classifyModel, err := routedProvider(cfg.LLM, cfg.LLM.Routing.Classification)
	if err != nil {
		return fmt.Errorf("classification model: %w", err)
	}
	synthProvider, synthModel, err := routedProvider(cfg.LLM, cfg.LLM.Routing.Synthesis)
	if err != nil {
		return fmt.Errorf("synthesis model: %w", err)
	}

	classifyProvider = llm.WithMetrics(classifyProvider, tel)
	synthProvider = llm.WithMetrics(synthProvider, tel)

	decider := classify.NewLLMDecider(classifyProvider, classifyModel, nil)
	synthesizer := synth.NewSynthesizer(synthProvider, synthModel, hub, nil)

	searcher, err := search.NewSearcher(cfg.Search)
	if err != nil {
		return err
	}
	var cache search.Cache
	if cfg.Storage.Redis.Enabled() {
		cache = search.NewRedisCache(cfg.Storage.Redis, cfg.Search.CacheTTL, nil)
	}
	gateway := search.NewGateway(searcher, cfg.Search, cache, tel, hub, nil)
	fetcher := fetch.NewFetcher(0, 0, hub)

	var history *store.Store
	if cfg.Storage.Postgres.Enabled() {
		if err := store.Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		history, err = store.Open(cfg.Storage.Postgres)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	var pipelineHistory pipeline.History
	if history != nil {
		pipelineHistory = history
	}
	pipe := pipeline.New(decider, gateway, synthesizer, fetcher, pipelineHistory, tel, hub, nil)

	s := &Server{
		cfg:       cfg,
		pipeline:  pipe,
		synth:     synthesizer,
		hub:       hub,
		wiki:      wiki.NewClient(0),
		history:   history,
		telemetry: tel,
		logger:    logger,
	}
	return s.serve(cfg.Server.Normalize())
}

func (s *Server) serve(cfg config.ServerConfig) error {
	e := echo.New()
	e.HideBanner = true
	s.register(e, cfg)
	return e.Start(cfg.Address)
}

// register wires middleware and routes; split from serve so tests can
// drive an echo instance without a listener.
func (s *Server) register(e *echo.Echo, cfg config.ServerConfig) {
	e.Renderer = &renderer{templates: pageTemplates}
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RateLimit),
		Burst:     cfg.RateBurst,
		ExpiresIn: 3 * time.Minute,
	})))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", s.handleIndex)
	e.GET("/terminal-demo", s.handleTerminalDemo)
	e.POST("/search", s.handleSearch)
	e.POST("/analyze", s.handleAnalyze)
	e.POST("/chat", s.handleChat)
	e.POST("/download-slides", s.handleDownloadSlides)
	e.GET("/ws/terminal", s.handleTerminalSocket)

	api := e.Group("/api")
	api.GET("/history", s.handleHistory)
	api.GET("/stats", s.handleStats)
}

// routedProvider resolves one routing entry ("provider/model") against
// the configured providers. A bare model name searches all providers.
func routedProvider(cfg config.LLMConfig, route string) (llm.Provider, string, error) {
	providerName, model := splitRoute(route)
	if model == "" {
		return nil, "", fmt.Errorf("empty model route")
	}
	if providerName != "" {
		pcfg, ok := cfg.Providers[providerName]
		if !ok {
			return nil, "", fmt.Errorf("unknown provider %q", providerName)
		}
		p, err := llm.NewProviderFor(pcfg)
		if err != nil {
			return nil, "", err
		}
		if _, err := llm.ValidateModel(p, model); err != nil {
			return nil, "", err
		}
		return p, model, nil
	}
	for _, pcfg := range cfg.Providers {
		p, err := llm.NewProviderFor(pcfg)
		if err != nil {
			continue
		}
		if _, err := llm.ValidateModel(p, model); err == nil {
			return p, model, nil
		}
	}
	return nil, "", fmt.Errorf("no provider serves model %q", model)
}

func splitRoute(route string) (provider, model string) {
	for i := 0; i < len(route); i++ {
		if route[i] == '/' {
			return route[:i], route[i+1:]
		}
	}
	return "", route
}
