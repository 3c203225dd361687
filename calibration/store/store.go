// Package store keeps a history of calibration runs and their records in a sqlite database.
package store

import (
	"context"
	"database/sql"
	// for embedding the schema.
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/logging"
)

// schema.sql creates the runs table and the per-run records table.
//
//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("run not found")

// Run is one persisted calibration run.
type Run struct {
	ID        uuid.UUID
	Mode      string
	Recipe    string
	Started   time.Time
	Finished  time.Time
	Completed bool
	Error     string
	DataFile  string
	// RecordCount is filled by ListRuns; Records by Get.
	RecordCount int
	Records     []record.Record
}

// Store is a sqlite backed run history.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "enabling foreign keys"), db.Close())
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "applying schema"), db.Close())
	}
	logger.Debugw("opened run store", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// SaveRun inserts a run and its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calibration_runs (id, mode, recipe, started_unix_ns, finished_unix_ns, completed, error, data_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID.String(), run.Mode, run.Recipe, run.Started.UnixNano(), run.Finished.UnixNano(),
		run.Completed, run.Error, run.DataFile)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calibration_records (run_id, seq, point_index, x, y, z, rx, ry, rz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, stmt.Close())
	}()
	for seq, r := range run.Records {
		m := r.Measured
		if _, err = stmt.ExecContext(ctx, run.ID.String(), seq, r.PointIndex, m[0], m[1], m[2], m[3], m[4], m[5]); err != nil {
			return errors.Wrapf(err, "failed to insert record %d", r.PointIndex)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first, without their records. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.mode, r.recipe, r.started_unix_ns, r.finished_unix_ns, r.completed, r.error, r.data_file,
			(SELECT COUNT(*) FROM calibration_records c WHERE c.run_id = r.id)
		FROM calibration_runs r
		ORDER BY r.started_unix_ns DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, true)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, withCount bool) (Run, error) {
	var (
		run               Run
		id                string
		started, finished int64
		completed         bool
	)
	dest := []any{&id, &run.Mode, &run.Recipe, &started, &finished, &completed, &run.Error, &run.DataFile}
	if withCount {
		dest = append(dest, &run.RecordCount)
	}
	if err := row.Scan(dest...); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, errors.Wrapf(err, "bad run id %q", id)
	}
	run.ID = parsed
	run.Started = time.Unix(0, started)
	run.Finished = time.Unix(0, finished)
	run.Completed = completed
	return run, nil
}

// Get returns a run with its records in capture order.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, recipe, started_unix_ns, finished_unix_ns, completed, error, data_file
		FROM calibration_runs WHERE id = ?
	`, id.String())
	run, err := scanRun(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT point_index, x, y, z, rx, ry, rz
		FROM calibration_records WHERE run_id = ?
		ORDER BY seq
	`, id.String())
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to query records")
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var r record.Record
		m := &r.Measured
		if err := rows.Scan(&r.PointIndex, &m[0], &m[1], &m[2], &m[3], &m[4], &m[5]); err != nil {
			return Run{}, err
		}
		run.Records = append(run.Records, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	run.RecordCount = len(run.Records)
	return run, nil
}

// Delete removes a run and its records.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM calibration_runs WHERE id = ?", id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
