package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"threadcast/internal/batch"
	"threadcast/internal/services"
)

// ErrRunNotFound is returned by Run when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded batch run.
type Run struct {
	ID         string
	Root       string
	Style      string
	Model      string
	JobCount   int
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Skipped    int
	Failed     int
	Abandoned  int
	WallTime   time.Duration
}

// Finished reports whether FinishRun was recorded.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// JobRecord is the latest recorded state of one job within a run.
type JobRecord struct {
	RunID        string
	SourcePath   string
	OutputPath   string
	Status       batch.JobStatus
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
	UpdatedAt    time.Time
}

var _ batch.Recorder = (*Store)(nil)

// BeginRun inserts a run row.
func (s *Store) BeginRun(ctx context.Context, run batch.RunInfo) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, root, style, model, job_count, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Style, run.Model, run.Jobs, formatTime(run.StartedAt),
	)
	if err != nil {
		return services.Wrap(services.ErrIO, "runlog", "begin run", run.ID, err)
	}
	return nil
}

// RecordTransition upserts the job row with its current status.
func (s *Store) RecordTransition(ctx context.Context, runID string, job batch.Job) error {
	var kind, message string
	if job.Error != nil {
		kind, message = job.Error.Kind, job.Error.Message
	}
	_, err := s.exec(ctx,
		`INSERT INTO jobs (run_id, source_path, output_path, status, error_kind, error_message, started_at, finished_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, source_path) DO UPDATE SET
             status = excluded.status,
             error_kind = excluded.error_kind,
             error_message = excluded.error_message,
             started_at = excluded.started_at,
             finished_at = excluded.finished_at,
             updated_at = excluded.updated_at`,
		runID, job.SourcePath, job.OutputPath, string(job.Status), kind, message,
		nullableTime(job.StartedAt), nullableTime(job.FinishedAt), formatTime(time.Now()),
	)
	if err != nil {
		return services.Wrap(services.ErrIO, "runlog", "record transition", job.SourcePath, err)
	}
	return nil
}

// FinishRun stores the final statistics of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, stats batch.Statistics, finishedAt time.Time) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, skipped = ?, failed = ?, abandoned = ?, wall_ms = ? WHERE id = ?`,
		formatTime(finishedAt), stats.Succeeded, stats.Skipped, stats.Failed, stats.Abandoned,
		stats.TotalWallTime.Milliseconds(), runID,
	)
	if err != nil {
		return services.Wrap(services.ErrIO, "runlog", "finish run", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, root, style, model, job_count, started_at, finished_at, succeeded, skipped, failed, abandoned, wall_ms`

// RecentRuns returns up to limit runs, newest first. A limit <= 0 returns 20.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "runlog", "recent runs", "query", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "runlog", "recent runs", "iterate", err)
	}
	return runs, nil
}

// Run fetches one run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// JobsForRun returns the jobs recorded for a run ordered by source path.
func (s *Store) JobsForRun(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source_path, output_path, status, error_kind, error_message, started_at, finished_at, updated_at
         FROM jobs WHERE run_id = ? ORDER BY source_path`, runID)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "runlog", "jobs for run", "query", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var (
			rec               JobRecord
			status            string
			started, finished sql.NullString
			updated           string
		)
		if err := rows.Scan(&rec.RunID, &rec.SourcePath, &rec.OutputPath, &status, &rec.ErrorKind,
			&rec.ErrorMessage, &started, &finished, &updated); err != nil {
			return nil, services.Wrap(services.ErrIO, "runlog", "jobs for run", "scan", err)
		}
		rec.Status = batch.JobStatus(status)
		rec.StartedAt = parseTime(started.String)
		rec.FinishedAt = parseTime(finished.String)
		rec.UpdatedAt = parseTime(updated)
		jobs = append(jobs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "runlog", "jobs for run", "iterate", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		wallMS   int64
	)
	err := row.Scan(&run.ID, &run.Root, &run.Style, &run.Model, &run.JobCount, &started, &finished,
		&run.Succeeded, &run.Skipped, &run.Failed, &run.Abandoned, &wallMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, services.Wrap(services.ErrIO, "runlog", "scan run", "", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished.String)
	run.WallTime = time.Duration(wallMS) * time.Millisecond
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
