// Package store persists completed runs in a local SQLite archive so updates
// can be reviewed and re-rendered after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	country       TEXT NOT NULL,
	risk_title    TEXT NOT NULL,
	status_change TEXT NOT NULL DEFAULT '',
	warnings      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	state_json    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_country ON runs(country);
`

// RunSummary is one archive listing row.
type RunSummary struct {
	RunID        string
	Country      string
	RiskTitle    string
	StatusChange string
	Warnings     int
	CreatedAt    time.Time
}

// Archive is the SQLite-backed run store.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive at path and ensures the schema exists.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores a completed run, replacing any prior record with the same id.
func (a *Archive) Save(ctx context.Context, st *state.RunState) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}

	status := ""
	if st.StatusRecommendation != nil {
		status = string(st.StatusRecommendation.StatusChange)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, country, risk_title, status_change, warnings, created_at, state_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.RunID, st.Country, st.RiskTitle, status, len(st.Warnings),
		st.Timestamp.UTC().Format(time.RFC3339), string(blob))
	if err != nil {
		return fmt.Errorf("save run %s: %w", st.RunID, err)
	}
	return nil
}

// Get loads a run by id.
func (a *Archive) Get(ctx context.Context, runID string) (*state.RunState, error) {
	var blob string
	err := a.db.QueryRowContext(ctx,
		`SELECT state_json FROM runs WHERE run_id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	var st state.RunState
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &st, nil
}

// List returns the most recent runs, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT run_id, country, risk_title, status_change, warnings, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s       RunSummary
			created string
		)
		if err := rows.Scan(&s.RunID, &s.Country, &s.RiskTitle, &s.StatusChange, &s.Warnings, &created); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			s.CreatedAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
