// Package store persists query history in Postgres. History is
// best-effort review data: the pipeline works without the database and
// callers tolerate a failed save.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/seeker/config"
)

type Store struct {
	DB *sql.DB
}

// QueryRecord is one processed query as it went through the pipeline.
type QueryRecord struct {
	ID             string        `json:"id"`
	Query          string        `json:"query"`
	Level          string        `json:"level"`
	Score          int           `json:"score"`
	Conversational bool          `json:"conversational"`
	Degraded       bool          `json:"degraded"`
	Summary        string        `json:"summary"`
	WebResults     int           `json:"web_results"`
	ImageResults   int           `json:"image_results"`
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Open connects to the configured Postgres database.
func Open(cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// SaveQuery inserts one history row. The ID is generated when empty.
func (s *Store) SaveQuery(ctx context.Context, rec QueryRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO query_history (id, query, level, score, conversational, degraded, summary, web_results, image_results, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW());
`, rec.ID, rec.Query, rec.Level, rec.Score, rec.Conversational, rec.Degraded, rec.Summary, rec.WebResults, rec.ImageResults, rec.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("save query: %w", err)
	}
	return rec.ID, nil
}

// RecentQueries returns the newest history rows, most recent first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, query, level, score, conversational, degraded, summary, web_results, image_results, duration_ms, created_at
FROM query_history ORDER BY created_at DESC LIMIT $1;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Level, &rec.Score, &rec.Conversational, &rec.Degraded,
			&rec.Summary, &rec.WebResults, &rec.ImageResults, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
