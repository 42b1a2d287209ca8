package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coldstage/adr-core/internal/infrastructure/database"
)

// Repository defines the interface for run persistence. The abstraction
// keeps the tracker testable without a database.
type Repository interface {
	// Start inserts a new run. A missing ID and start time are filled in.
	Start(ctx context.Context, run *Run) error

	// Finish completes an active run in place.
	Finish(ctx context.Context, id string, stop StopInfo) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*Run, error)

	// List retrieves recent runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
}

// runColumns is the SELECT column list for run queries.
const runColumns = `id, kind, target, started_at, stopped_at, reason,
			start_current, stop_current, start_temp, stop_temp`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Start inserts a new run.
func (r *SQLiteRepository) Start(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()[:8]
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, kind, target, started_at, start_current, start_temp)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		run.Target,
		run.StartedAt.Format(time.RFC3339),
		nullableFloat(run.StartCurrent),
		nullableFloat(run.StartTemp),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Finish completes an active run.
func (r *SQLiteRepository) Finish(ctx context.Context, id string, stop StopInfo) error {
	query := `
		UPDATE runs SET stopped_at = ?, reason = ?, stop_current = ?, stop_temp = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		stop.StoppedAt.Format(time.RFC3339),
		stop.Reason,
		nullableFloat(stop.StopCurrent),
		nullableFloat(stop.StopTemp),
		id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRunRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// List retrieves recent runs, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, scanErr := scanRunRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRow(scanner rowScanner) (*Run, error) {
	var r Run
	var kind, startedAt string
	var stoppedAt, reason sql.NullString
	var startCurrent, stopCurrent, startTemp, stopTemp sql.NullFloat64

	err := scanner.Scan(
		&r.ID,
		&kind,
		&r.Target,
		&startedAt,
		&stoppedAt,
		&reason,
		&startCurrent,
		&stopCurrent,
		&startTemp,
		&stopTemp,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = Kind(kind)
	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		r.StartedAt = t
	}
	if stoppedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, stoppedAt.String); parseErr == nil {
			r.StoppedAt = &t
		}
	}
	if reason.Valid {
		r.Reason = &reason.String
	}
	r.StartCurrent = floatFromNull(startCurrent)
	r.StopCurrent = floatFromNull(stopCurrent)
	r.StartTemp = floatFromNull(startTemp)
	r.StopTemp = floatFromNull(stopTemp)

	return &r, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatFromNull(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
