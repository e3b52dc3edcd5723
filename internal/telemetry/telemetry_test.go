package telemetry

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/seeker/config"
)

func newTestTelemetry() *Telemetry {
	return NewTelemetry(config.TelemetryConfig{Enabled: true}, log.New(io.Discard, "", 0))
}

func TestRecordQueryAggregates(t *testing.T) {
	tel := newTestTelemetry()
	tel.RecordQuery(QueryEvent{Route: "search", Level: "simple", Success: true, Duration: 100 * time.Millisecond})
	tel.RecordQuery(QueryEvent{Route: "search", Level: "deep", Success: true, Duration: 300 * time.Millisecond})
	tel.RecordQuery(QueryEvent{Route: "search", Level: "deep", Success: false, Degraded: true, Duration: 200 * time.Millisecond})

	s := tel.GetSnapshot()
	if s.TotalQueries != 3 || s.SuccessfulQueries != 2 || s.FailedQueries != 1 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.DegradedSyntheses != 1 {
		t.Fatalf("degraded count wrong: %+v", s)
	}
	if s.QueriesByLevel["deep"] != 2 || s.QueriesByLevel["simple"] != 1 {
		t.Fatalf("per-level counts wrong: %+v", s.QueriesByLevel)
	}
	if s.AverageProcessing != 200*time.Millisecond {
		t.Fatalf("average wrong: %v", s.AverageProcessing)
	}
}

func TestDisabledTelemetryRecordsNothing(t *testing.T) {
	tel := NewTelemetry(config.TelemetryConfig{Enabled: false}, log.New(io.Discard, "", 0))
	tel.RecordQuery(QueryEvent{Route: "search", Success: true, Duration: time.Second})
	tel.RecordSearch("serper", true)
	tel.RecordLLMCall("claude", true)

	if s := tel.GetSnapshot(); s.TotalQueries != 0 {
		t.Fatalf("disabled telemetry must not count: %+v", s)
	}
}

func TestRecordConcurrent(t *testing.T) {
	tel := newTestTelemetry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tel.RecordQuery(QueryEvent{Route: "analyze", Level: "medium", Success: true, Duration: 10 * time.Millisecond})
			tel.RecordSearch("serper", true)
			tel.RecordLLMCall("claude", false)
		}()
	}
	wg.Wait()

	if s := tel.GetSnapshot(); s.TotalQueries != 50 {
		t.Fatalf("expected 50 queries, got %d", s.TotalQueries)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tel := newTestTelemetry()
	tel.RecordQuery(QueryEvent{Route: "search", Level: "simple", Success: true, Duration: time.Millisecond})

	s := tel.GetSnapshot()
	s.QueriesByLevel["simple"] = 99

	if tel.GetSnapshot().QueriesByLevel["simple"] != 1 {
		t.Fatalf("snapshot must not alias internal state")
	}
}
