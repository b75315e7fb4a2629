// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists extraction runs to a SQLite database, so rule
// match counts and diagnostics can be compared across documents and across
// catalog changes.
//
// Implements: prd006-history; docs/ARCHITECTURE § History.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/texplain/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "texplain.db"
)

// Store manages the run-history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the history database at dir/index/texplain.db,
// creating the schema when absent.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".texplain"
	}
	dbDir := filepath.Join(dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
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
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			text_length INTEGER NOT NULL,
			aborted INTEGER NOT NULL,
			timeout_mode TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rule_matches (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			rule TEXT NOT NULL,
			provenance TEXT NOT NULL,
			phase TEXT NOT NULL,
			file TEXT,
			line INTEGER,
			matches INTEGER NOT NULL,
			elapsed_us INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rule_matches_run ON rule_matches(run_id)`,
		`CREATE TABLE IF NOT EXISTS remaining (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			command TEXT NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_remaining_run ON remaining(run_id)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			file TEXT,
			line INTEGER,
			rule TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one extraction run and returns its row id. Rules with zero
// matches are stored too: a rule that stopped matching after a catalog
// change is exactly what the history is for.
func (s *Store) Record(ctx context.Context, source string, res *types.ExtractionResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.ExecContext(ctx,
		`INSERT INTO runs (source, started_at, elapsed_ms, text_length, aborted, timeout_mode)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		source, time.Now().UTC().Format(time.RFC3339),
		res.Elapsed.Milliseconds(), len(res.Text), res.Aborted, string(res.TimeoutMode),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := row.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rule_matches (run_id, position, rule, provenance, phase, file, line, matches, elapsed_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing rule insert: %w", err)
	}
	defer stmt.Close()
	for i, m := range res.Matches {
		if _, err := stmt.ExecContext(ctx, runID, i, m.Rule, m.Provenance, m.Phase,
			m.Location.File, m.Location.Line, m.Matches, m.Elapsed.Microseconds()); err != nil {
			return 0, fmt.Errorf("inserting rule match: %w", err)
		}
	}

	for _, c := range res.Remaining {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO remaining (run_id, command, count) VALUES (?, ?, ?)`,
			runID, c.Command, c.Count); err != nil {
			return 0, fmt.Errorf("inserting remaining command: %w", err)
		}
	}

	for _, d := range res.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (run_id, kind, message, file, line, rule)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, string(d.Kind), d.Message, d.Location.File, d.Location.Line, d.Rule); err != nil {
			return 0, fmt.Errorf("inserting diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID          int64  `json:"id" yaml:"id"`
	Source      string `json:"source" yaml:"source"`
	StartedAt   string `json:"started_at" yaml:"started_at"`
	ElapsedMS   int64  `json:"elapsed_ms" yaml:"elapsed_ms"`
	TextLength  int    `json:"text_length" yaml:"text_length"`
	Aborted     bool   `json:"aborted" yaml:"aborted"`
	Rules       int    `json:"rules" yaml:"rules"`
	Matched     int    `json:"matched" yaml:"matched"`
	Diagnostics int    `json:"diagnostics" yaml:"diagnostics"`
}

// Runs lists the most recent runs, newest first. limit <= 0 uses the
// configured default.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.source, r.started_at, r.elapsed_ms, r.text_length, r.aborted,
		        (SELECT count(*) FROM rule_matches m WHERE m.run_id = r.id),
		        (SELECT coalesce(sum(m.matches), 0) FROM rule_matches m WHERE m.run_id = r.id),
		        (SELECT count(*) FROM diagnostics d WHERE d.run_id = r.id)
		 FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.ElapsedMS, &r.TextLength,
			&r.Aborted, &r.Rules, &r.Matched, &r.Diagnostics); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunDetail holds one stored run with its tables.
type RunDetail struct {
	Run         RunSummary           `json:"run" yaml:"run"`
	Matches     []types.RuleMatches  `json:"matches" yaml:"matches"`
	Remaining   []types.CommandCount `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Diagnostics []types.Diagnostic   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Run loads one run by id.
func (s *Store) Run(ctx context.Context, id int64) (*RunDetail, error) {
	var d RunDetail
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, started_at, elapsed_ms, text_length, aborted
		 FROM runs WHERE id = ?`, id).
		Scan(&d.Run.ID, &d.Run.Source, &d.Run.StartedAt, &d.Run.ElapsedMS,
			&d.Run.TextLength, &d.Run.Aborted)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rule, provenance, phase, file, line, matches, elapsed_us
		 FROM rule_matches WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying rule matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m types.RuleMatches
		var elapsedUS int64
		if err := rows.Scan(&m.Rule, &m.Provenance, &m.Phase,
			&m.Location.File, &m.Location.Line, &m.Matches, &elapsedUS); err != nil {
			return nil, fmt.Errorf("scanning rule match: %w", err)
		}
		m.Elapsed = time.Duration(elapsedUS) * time.Microsecond
		d.Matches = append(d.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	remRows, err := s.db.QueryContext(ctx,
		`SELECT command, count FROM remaining WHERE run_id = ?
		 ORDER BY count DESC, command`, id)
	if err != nil {
		return nil, fmt.Errorf("querying remaining commands: %w", err)
	}
	defer remRows.Close()
	for remRows.Next() {
		var c types.CommandCount
		if err := remRows.Scan(&c.Command, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning remaining command: %w", err)
		}
		d.Remaining = append(d.Remaining, c)
	}
	if err := remRows.Err(); err != nil {
		return nil, err
	}

	diagRows, err := s.db.QueryContext(ctx,
		`SELECT kind, message, file, line, rule FROM diagnostics WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer diagRows.Close()
	for diagRows.Next() {
		var diag types.Diagnostic
		var kind string
		if err := diagRows.Scan(&kind, &diag.Message,
			&diag.Location.File, &diag.Location.Line, &diag.Rule); err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}
		diag.Kind = types.DiagKind(kind)
		d.Diagnostics = append(d.Diagnostics, diag)
	}
	return &d, diagRows.Err()
}
