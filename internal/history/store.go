// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records each digest run and the papers it recommended in
// a SQLite database, so past digests can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "history.db"

// Run is one pipeline invocation.
type Run struct {
	ID         int64     `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Query      string    `json:"query" yaml:"query"`
	Candidates int       `json:"candidates" yaml:"candidates"`
	Delivered  bool      `json:"delivered" yaml:"delivered"`

	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
}

// Recommendation is one paper as shown in a run's digest.
type Recommendation struct {
	PaperID      string   `json:"paper_id" yaml:"paper_id"`
	Rank         int      `json:"rank" yaml:"rank"`
	Score        float64  `json:"score" yaml:"score"`
	Title        string   `json:"title" yaml:"title"`
	TLDR         string   `json:"tldr,omitempty" yaml:"tldr,omitempty"`
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/history.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			query TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			delivered INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			paper_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			score REAL NOT NULL,
			title TEXT,
			tldr TEXT,
			affiliations TEXT,
			PRIMARY KEY (run_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_paper_id ON recommendations(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its recommendations and returns the new run id.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, query, candidates, delivered) VALUES (?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Query, run.Candidates, run.Delivered)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, r := range run.Recommendations {
		var affiliations sql.NullString
		if r.Affiliations != nil {
			data, err := json.Marshal(r.Affiliations)
			if err != nil {
				return 0, fmt.Errorf("marshaling affiliations: %w", err)
			}
			affiliations = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recommendations (run_id, paper_id, rank, score, title, tldr, affiliations)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, r.PaperID, r.Rank, r.Score, r.Title, r.TLDR, affiliations); err != nil {
			return 0, fmt.Errorf("inserting recommendation %s: %w", r.PaperID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, with their
// recommendations in rank order. A limit of zero or less means all runs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, query, candidates, delivered FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var delivered int
		if err := rows.Scan(&r.ID, &started, &r.Query, &r.Candidates, &delivered); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.Delivered = delivered != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		recs, err := s.recommendations(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Recommendations = recs
	}
	return runs, nil
}

func (s *Store) recommendations(ctx context.Context, runID int64) ([]Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, rank, score, COALESCE(title, ''), COALESCE(tldr, ''), affiliations
		 FROM recommendations WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		var affiliations sql.NullString
		if err := rows.Scan(&r.PaperID, &r.Rank, &r.Score, &r.Title, &r.TLDR, &affiliations); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		if affiliations.Valid {
			if err := json.Unmarshal([]byte(affiliations.String), &r.Affiliations); err != nil {
				return nil, fmt.Errorf("decoding affiliations of %s: %w", r.PaperID, err)
			}
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
