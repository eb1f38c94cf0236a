// Package catalog mirrors harvested records into a SQLite database so they
// can be queried across runs.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/backmassage/dicomharvest/internal/probe"
)

//go:embed schema.sql
var schemaSQL string

// Run describes one completed harvest.
type Run struct {
	ID         string
	Root       string
	Candidates int
	Decoded    int
	Failed     int
	FinishedAt time.Time
}

// Catalog is a handle on the SQLite database.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog at path, creating parent directories as
// needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// One writer per process; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Catalog{db: db, path: path}, nil
}

// Path returns the database path the catalog was opened with.
func (c *Catalog) Path() string { return c.path }

// Close closes the database.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Save records run and upserts its records in one transaction. Rows under the
// same root left over from earlier runs are removed, so after Save the
// catalog holds exactly the records of the latest run for that root. The root
// and file paths are stored absolute, so the same tree reached through
// different relative spellings shares one set of rows.
func (c *Catalog) Save(ctx context.Context, run Run, records []probe.Record) (err error) {
	if run.ID == "" {
		return errors.New("catalog: run id is required")
	}
	if run.Root, err = filepath.Abs(run.Root); err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	run.FinishedAt = run.FinishedAt.UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, root, candidates, decoded, failed, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Candidates, run.Decoded, run.Failed, run.FinishedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dicom_files (filepath, patient_name, patient_id, root, run_id, harvested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			patient_name = excluded.patient_name,
			patient_id   = excluded.patient_id,
			root         = excluded.root,
			run_id       = excluded.run_id,
			harvested_at = excluded.harvested_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.FilePath, err = filepath.Abs(r.FilePath); err != nil {
			return fmt.Errorf("resolve %s: %w", r.FilePath, err)
		}
		if _, err = stmt.ExecContext(ctx, r.FilePath, r.PatientName, r.PatientID, run.Root, run.ID, run.FinishedAt); err != nil {
			return fmt.Errorf("upsert %s: %w", r.FilePath, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM dicom_files WHERE root = ? AND run_id <> ?`, run.Root, run.ID,
	); err != nil {
		return fmt.Errorf("prune stale records: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records returns every catalogued record ordered by file path.
func (c *Catalog) Records(ctx context.Context) ([]probe.Record, error) {
	return c.query(ctx, `SELECT filepath, patient_name, patient_id FROM dicom_files ORDER BY filepath`)
}

// RecordsForPatient returns the records whose PatientID equals id.
func (c *Catalog) RecordsForPatient(ctx context.Context, id string) ([]probe.Record, error) {
	return c.query(ctx, `SELECT filepath, patient_name, patient_id FROM dicom_files WHERE patient_id = ? ORDER BY filepath`, id)
}

// RunCount returns the number of runs recorded.
func (c *Catalog) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func (c *Catalog) query(ctx context.Context, q string, args ...interface{}) ([]probe.Record, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []probe.Record
	for rows.Next() {
		var r probe.Record
		if err := rows.Scan(&r.FilePath, &r.PatientName, &r.PatientID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
