// Package telemetry tracks request outcomes and upstream usage. In-memory
// counters feed periodic log reports; Prometheus collectors feed /metrics.
package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/seeker/config"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seeker_queries_total",
		Help: "Queries processed, by route and outcome.",
	}, []string{"route", "outcome"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seeker_query_duration_seconds",
		Help:    "End-to-end query processing time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seeker_search_requests_total",
		Help: "Search provider round trips, by provider and outcome.",
	}, []string{"provider", "outcome"})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seeker_llm_requests_total",
		Help: "LLM completions, by model and outcome.",
	}, []string{"model", "outcome"})
)

// Telemetry aggregates per-process counters and mirrors them to
// Prometheus. All methods are safe for concurrent use.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu                 sync.RWMutex
	totalQueries       int64
	successfulQueries  int64
	failedQueries      int64
	conversational     int64
	degradedSyntheses  int64
	averageProcessing  time.Duration
	queriesByLevel     map[string]int64
	searchesByProvider map[string]int64
	llmCallsByModel    map[string]int64
}

// QueryEvent is one completed request seen end to end.
type QueryEvent struct {
	Route          string
	Level          string
	Success        bool
	Conversational bool
	Degraded       bool
	Duration       time.Duration
}

func NewTelemetry(cfg config.TelemetryConfig, logger *log.Logger) *Telemetry {
	if logger == nil {
		logger = log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags)
	}
	t := &Telemetry{
		config:             cfg,
		logger:             logger,
		queriesByLevel:     make(map[string]int64),
		searchesByProvider: make(map[string]int64),
		llmCallsByModel:    make(map[string]int64),
	}
	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startReporting()
	}
	return t
}

// RecordQuery records a completed request.
func (t *Telemetry) RecordQuery(event QueryEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	queriesTotal.WithLabelValues(event.Route, outcome).Inc()
	queryDuration.WithLabelValues(event.Route).Observe(event.Duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalQueries++
	if event.Success {
		t.successfulQueries++
	} else {
		t.failedQueries++
	}
	if event.Conversational {
		t.conversational++
	}
	if event.Degraded {
		t.degradedSyntheses++
	}
	if event.Level != "" {
		t.queriesByLevel[event.Level]++
	}

	if t.totalQueries == 1 {
		t.averageProcessing = event.Duration
	} else {
		total := t.averageProcessing * time.Duration(t.totalQueries-1)
		t.averageProcessing = (total + event.Duration) / time.Duration(t.totalQueries)
	}
}

// RecordSearch records one search provider round trip.
func (t *Telemetry) RecordSearch(provider string, success bool) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	searchRequests.WithLabelValues(provider, outcome).Inc()

	t.mu.Lock()
	t.searchesByProvider[provider]++
	t.mu.Unlock()
}

// RecordLLMCall records one model completion.
func (t *Telemetry) RecordLLMCall(model string, success bool) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	llmRequests.WithLabelValues(model, outcome).Inc()

	t.mu.Lock()
	t.llmCallsByModel[model]++
	t.mu.Unlock()
}

// Snapshot is a point-in-time copy of the aggregate counters.
type Snapshot struct {
	TotalQueries      int64            `json:"total_queries"`
	SuccessfulQueries int64            `json:"successful_queries"`
	FailedQueries     int64            `json:"failed_queries"`
	Conversational    int64            `json:"conversational"`
	DegradedSyntheses int64            `json:"degraded_syntheses"`
	AverageProcessing time.Duration    `json:"average_processing"`
	QueriesByLevel    map[string]int64 `json:"queries_by_level"`
}

func (t *Telemetry) GetSnapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byLevel := make(map[string]int64, len(t.queriesByLevel))
	for k, v := range t.queriesByLevel {
		byLevel[k] = v
	}
	return Snapshot{
		TotalQueries:      t.totalQueries,
		SuccessfulQueries: t.successfulQueries,
		FailedQueries:     t.failedQueries,
		Conversational:    t.conversational,
		DegradedSyntheses: t.degradedSyntheses,
		AverageProcessing: t.averageProcessing,
		QueriesByLevel:    byLevel,
	}
}

func (t *Telemetry) startReporting() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s := t.GetSnapshot()
		if s.TotalQueries == 0 {
			continue
		}
		t.logger.Printf("Report: Total=%d, Success=%d, Failed=%d, Conversational=%d, Degraded=%d, AvgTime=%v, ByLevel=%v",
			s.TotalQueries, s.SuccessfulQueries, s.FailedQueries, s.Conversational, s.DegradedSyntheses,
			s.AverageProcessing.Round(time.Millisecond), s.QueriesByLevel)
	}
}
