package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/logger"
)

// SQLiteRecorder persists forecast runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.GetLogger().WithComponent("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id            TEXT PRIMARY KEY,
			started_at    INTEGER NOT NULL,
			duration_ms   REAL,
			source        TEXT,
			horizon       INTEGER,
			model_order   TEXT,
			status        TEXT NOT NULL,
			error         TEXT,
			record_count  INTEGER,
			failure_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON forecast_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS forecast_records (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES forecast_runs(id),
			position          INTEGER NOT NULL,
			forecast_date     TEXT NOT NULL,
			sku_id            TEXT NOT NULL,
			sku_name          TEXT,
			forecasted_demand INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON forecast_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sku ON forecast_records(sku_id, forecast_date)`,

		`CREATE TABLE IF NOT EXISTS forecast_failures (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES forecast_runs(id),
			sku_id  TEXT NOT NULL,
			kind    TEXT,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON forecast_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run with its records and failures in one transaction.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	var errText string
	if run.Err != nil {
		errText = run.Err.Error()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO forecast_runs
		(id, started_at, duration_ms, source, horizon, model_order, status, error, record_count, failure_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Unix(), float64(run.Duration.Nanoseconds())/1e6,
		run.Source, run.Horizon, run.Order, run.Status(), errText,
		len(run.Records), len(run.Failures),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, rec := range run.Records {
		if _, err := tx.Exec(`INSERT INTO forecast_records
			(run_id, position, forecast_date, sku_id, sku_name, forecasted_demand)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, rec.DateString(), rec.SKUID, rec.SKUName, rec.ForecastedDemand,
		); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	for _, f := range run.Failures {
		if _, err := tx.Exec(`INSERT INTO forecast_failures (run_id, sku_id, kind, message) VALUES (?, ?, ?, ?)`,
			run.ID, f.SKU, f.Kind, f.Message,
		); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.log.WithFields(logger.Fields{
		"run_id":   run.ID,
		"status":   run.Status(),
		"records":  len(run.Records),
		"failures": len(run.Failures),
	}).Debug("forecast run recorded")
	return nil
}

// RunSummary is a stored run without its records.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	Status       string
	Error        string
	RecordCount  int
	FailureCount int
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(`SELECT id, started_at, status, COALESCE(error, ''), record_count, failure_count
		FROM forecast_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started int64
		if err := rows.Scan(&s.ID, &started, &s.Status, &s.Error, &s.RecordCount, &s.FailureCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.Unix(started, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Records returns the forecast records of a run in their original order.
func (r *SQLiteRecorder) Records(runID string) ([]demand.ForecastRecord, error) {
	rows, err := r.db.Query(`SELECT forecast_date, sku_id, COALESCE(sku_name, ''), forecasted_demand
		FROM forecast_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []demand.ForecastRecord
	for rows.Next() {
		var rec demand.ForecastRecord
		var date string
		if err := rows.Scan(&date, &rec.SKUID, &rec.SKUName, &rec.ForecastedDemand); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Date, err = time.Parse(demand.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
