// Package storage provides SQLite-backed persistence for analysis runs.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/quakestat/internal/models"
)

// ErrRunNotFound is returned when a run id is not in the history.
var ErrRunNotFound = errors.New("run not found")

// Storage wraps a SQLite database holding the run history.
type Storage struct {
	db      *sql.DB
	maxRuns int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/quakestat/runs.db.
func New(maxRuns int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "quakestat", "runs.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Storage{db: db, maxRuns: maxRuns}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := s.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			mode        TEXT NOT NULL,
			source      TEXT NOT NULL,
			event_count INTEGER NOT NULL,
			windows     INTEGER NOT NULL,
			included    INTEGER NOT NULL,
			degenerate  INTEGER NOT NULL,
			params      TEXT NOT NULL DEFAULT '{}',
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS window_results (
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx         INTEGER NOT NULL,
			bx_min      REAL NOT NULL DEFAULT 0,
			bx_max      REAL NOT NULL DEFAULT 0,
			by_min      REAL NOT NULL DEFAULT 0,
			by_max      REAL NOT NULL DEFAULT 0,
			x_min       REAL NOT NULL,
			x_max       REAL NOT NULL,
			y_min       REAL NOT NULL,
			y_max       REAL NOT NULL,
			z_min       REAL NOT NULL,
			z_max       REAL NOT NULL,
			event_count INTEGER NOT NULL,
			time_min    INTEGER NOT NULL,
			time_max    INTEGER NOT NULL,
			included    INTEGER NOT NULL,
			b_lsr       REAL,
			a_lsr       REAL,
			b_ml        REAL,
			a_ml        REAL,
			std_err_ml  REAL,
			lsr_failure TEXT NOT NULL DEFAULT '',
			ml_failure  TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a run and its window results in one transaction, assigning an
// id and creation time when they are unset, then trims the history to maxRuns.
func (s *Storage) SaveRun(run *models.Run, results []models.WindowResult) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Params == "" {
		run.Params = "{}"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO runs
			(id, mode, source, event_count, windows, included, degenerate, params, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, string(run.Mode), run.Source, run.EventCount, run.Windows,
		run.Included, run.Degenerate, run.Params, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO window_results
			(run_id, idx, bx_min, bx_max, by_min, by_max,
			 x_min, x_max, y_min, y_max, z_min, z_max, event_count,
			 time_min, time_max, included, b_lsr, a_lsr, b_ml, a_ml, std_err_ml,
			 lsr_failure, ml_failure)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare window insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		bLSR, aLSR := estimateColumns(r.LSR)
		bML, aML := estimateColumns(r.ML)
		var stdErr sql.NullFloat64
		if r.ML != nil {
			stdErr = sql.NullFloat64{Float64: r.ML.StdErr, Valid: true}
		}
		_, err = stmt.Exec(
			run.ID, r.Index,
			r.Bounds.XMin, r.Bounds.XMax, r.Bounds.YMin, r.Bounds.YMax,
			r.Extent.XMin, r.Extent.XMax, r.Extent.YMin, r.Extent.YMax, r.Extent.ZMin, r.Extent.ZMax,
			r.EventCount, unixNano(r.TimeMin), unixNano(r.TimeMax), boolToInt(r.Included),
			bLSR, aLSR, bML, aML, stdErr,
			r.LSRFailure, r.MLFailure,
		)
		if err != nil {
			return fmt.Errorf("failed to insert window %d: %w", r.Index, err)
		}
	}

	if err := rotate(tx, s.maxRuns); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) GetRun(id string) (*models.Run, error) {
	row := s.db.QueryRow(`SELECT `+runCols+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Storage) ListRuns(limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runCols+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()
	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetWindowResults returns the stored windows of a run in index order.
func (s *Storage) GetWindowResults(runID string) ([]models.WindowResult, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT idx, bx_min, bx_max, by_min, by_max,
		       x_min, x_max, y_min, y_max, z_min, z_max, event_count,
		       time_min, time_max, included, b_lsr, a_lsr, b_ml, a_ml, std_err_ml,
		       lsr_failure, ml_failure
		FROM window_results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query window results: %w", err)
	}
	defer rows.Close()

	var results []models.WindowResult
	for rows.Next() {
		var r models.WindowResult
		var timeMin, timeMax int64
		var included int
		var bLSR, aLSR, bML, aML, stdErr sql.NullFloat64
		err := rows.Scan(
			&r.Index,
			&r.Bounds.XMin, &r.Bounds.XMax, &r.Bounds.YMin, &r.Bounds.YMax,
			&r.Extent.XMin, &r.Extent.XMax, &r.Extent.YMin, &r.Extent.YMax, &r.Extent.ZMin, &r.Extent.ZMax,
			&r.EventCount, &timeMin, &timeMax, &included,
			&bLSR, &aLSR, &bML, &aML, &stdErr,
			&r.LSRFailure, &r.MLFailure,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan window result: %w", err)
		}
		r.Mode = run.Mode
		r.TimeMin = fromUnixNano(timeMin)
		r.TimeMax = fromUnixNano(timeMax)
		r.Included = included != 0
		if bLSR.Valid && aLSR.Valid {
			r.LSR = &models.Estimate{B: bLSR.Float64, A: aLSR.Float64}
		}
		if bML.Valid && aML.Valid {
			r.ML = &models.Estimate{B: bML.Float64, A: aML.Float64, StdErr: stdErr.Float64}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RotateRuns keeps at most maxRuns newest runs by created_at.
// Cascading deletes remove their window results.
func (s *Storage) RotateRuns() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := rotate(tx, s.maxRuns); err != nil {
		return err
	}
	return tx.Commit()
}

func rotate(tx *sql.Tx, maxRuns int) error {
	if maxRuns <= 0 {
		return nil
	}
	_, err := tx.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC LIMIT ?
		)`, maxRuns)
	if err != nil {
		return fmt.Errorf("failed to rotate runs: %w", err)
	}
	return nil
}

const runCols = `id, mode, source, event_count, windows, included, degenerate, params, created_at`

func scanRun(scan func(...any) error) (*models.Run, error) {
	var run models.Run
	var mode string
	var createdAtNano int64
	err := scan(
		&run.ID, &mode, &run.Source, &run.EventCount, &run.Windows,
		&run.Included, &run.Degenerate, &run.Params, &createdAtNano,
	)
	if err != nil {
		return nil, err
	}
	run.Mode = models.WindowMode(mode)
	run.CreatedAt = time.Unix(0, createdAtNano)
	return &run, nil
}

func estimateColumns(est *models.Estimate) (b, a sql.NullFloat64) {
	if est == nil {
		return b, a
	}
	return sql.NullFloat64{Float64: est.B, Valid: true}, sql.NullFloat64{Float64: est.A, Valid: true}
}

// unixNano stores the zero time as 0 so empty windows round-trip.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
