package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"quickscribe/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new job in the pending state. A job id is created exactly
// once; a second insert with the same id returns ErrJobExists.
func (s *Store) Create(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if job.JobID == "" {
		return nil, errors.New("job id is required")
	}
	status := job.Status
	if status == "" {
		status = StatusPending
	}
	task := job.Task
	if task == "" {
		task = TaskTranscribe
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            job_id, status, task, language, speaker_count, diarize,
            storage_key, source_filename, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID,
		status,
		task,
		nullableString(job.Language),
		job.SpeakerCount,
		boolToInt(job.Diarize),
		nullableString(job.StorageKey),
		nullableString(job.SourceFilename),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobExists, job.JobID)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.Get(ctx, job.JobID)
}

// Get fetches a job by identifier. Unknown ids return (nil, nil).
func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// SetStatus transitions a job to the given status.
func (s *Store) SetStatus(ctx context.Context, jobID string, status Status) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE job_id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return nil
}

// MarkFailed records a terminal failure with the last observed error.
//
// A completed job is immutable: marking it failed returns ErrResultMismatch
// and leaves the stored result untouched. The check-and-write runs in one
// transaction so a failure callback racing a success cannot retract it.
func (s *Store) MarkFailed(ctx context.Context, jobID, message string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failure tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = ?`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if status == StatusCompleted {
		return fmt.Errorf("%w: %s", ErrResultMismatch, jobID)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE job_id = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	return nil
}

// SetResult writes the terminal status and result payload for a job.
//
// The payload is immutable once written: re-delivery with an identical payload
// is a no-op, a divergent payload returns ErrResultMismatch and leaves the
// stored data untouched. The whole check-and-write runs in one transaction so
// concurrent callbacks for the same job serialize cleanly.
func (s *Store) SetResult(ctx context.Context, jobID string, status Status, resultJSON string) (*Job, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("set result: status %q is not terminal", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin result tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT result_json FROM jobs WHERE job_id = ?`, jobID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("read existing result: %w", err)
	}

	if existing.Valid && existing.String != "" {
		if existing.String != resultJSON {
			return nil, fmt.Errorf("%w: %s", ErrResultMismatch, jobID)
		}
		// Identical re-delivery; nothing to write.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit result: %w", err)
		}
		return s.Get(ctx, jobID)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, result_json = ?, updated_at = ? WHERE job_id = ?`,
		status,
		nullableString(resultJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit result: %w", err)
	}
	return s.Get(ctx, jobID)
}

// List returns jobs filtered by status set (or all jobs when none is given),
// ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const jobColumns = "job_id, status, task, language, speaker_count, diarize, storage_key, source_filename, result_json, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		jobID          string
		statusStr      string
		taskStr        string
		language       sql.NullString
		speakerCount   sql.NullInt64
		diarize        sql.NullInt64
		storageKey     sql.NullString
		sourceFilename sql.NullString
		resultJSON     sql.NullString
		errorMessage   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&jobID,
		&statusStr,
		&taskStr,
		&language,
		&speakerCount,
		&diarize,
		&storageKey,
		&sourceFilename,
		&resultJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		JobID:          jobID,
		Status:         Status(statusStr),
		Task:           Task(taskStr),
		Language:       language.String,
		SpeakerCount:   int(speakerCount.Int64),
		Diarize:        diarize.Int64 != 0,
		StorageKey:     storageKey.String,
		SourceFilename: sourceFilename.String,
		ResultJSON:     resultJSON.String,
		ErrorMessage:   errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
