package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurate/internal/models"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// RunRepository stores the run history and its ledger events.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start inserts run in the running state.
func (r *RunRepository) Start(run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	run.Status = models.RunRunning

	query := `
		INSERT INTO runs (id, mode, started_at, status)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, run.ID, run.Mode, run.StartedAt.UTC(), run.Status); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Finish records the final counters and status of run.
func (r *RunRepository) Finish(run *models.Run) error {
	query := `
		UPDATE runs
		SET finished_at = ?, status = ?, added = ?, removed = ?, failed = ?, error = ?
		WHERE id = ?
	`

	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC()
	}

	var message any = run.Error
	if run.Error == "" {
		message = nil
	}

	result, err := r.db.Exec(query, finishedAt, run.Status, run.Added, run.Removed, run.Failed, message, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by id.
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, mode, started_at, finished_at, status, added, removed, failed, error
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LastSuccessful returns the most recent succeeded run, or nil when there is none.
func (r *RunRepository) LastSuccessful() (*models.Run, error) {
	query := `
		SELECT id, mode, started_at, finished_at, status, added, removed, failed, error
		FROM runs
		WHERE status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanRun(r.db.QueryRow(query, models.RunSucceeded))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// List returns the most recent runs first. A non-positive limit returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, mode, started_at, finished_at, status, added, removed, failed, error
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// RecordLedgerEvent appends an event for the run it names.
func (r *RunRepository) RecordLedgerEvent(event models.LedgerEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO ledger_events (run_id, playlist_id, video_id, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, event.RunID, event.PlaylistID, event.VideoID, event.Kind, event.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert ledger event: %w", err)
	}
	return nil
}

// LedgerEvents lists the events of a run in insertion order.
func (r *RunRepository) LedgerEvents(runID string) ([]models.LedgerEvent, error) {
	query := `
		SELECT run_id, playlist_id, video_id, kind, created_at
		FROM ledger_events
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger events: %w", err)
	}
	defer rows.Close()

	var events []models.LedgerEvent
	for rows.Next() {
		var e models.LedgerEvent
		if err := rows.Scan(&e.RunID, &e.PlaylistID, &e.VideoID, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var (
		run        models.Run
		status     string
		finishedAt sql.NullTime
		message    sql.NullString
	)

	err := s.Scan(&run.ID, &run.Mode, &run.StartedAt, &finishedAt, &status, &run.Added, &run.Removed, &run.Failed, &message)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.Error = message.String
	return &run, nil
}
