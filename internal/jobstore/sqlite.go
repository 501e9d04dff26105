package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed implementation of Store. The API and worker
// services open the same database file; WAL mode keeps concurrent access safe.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and runs
// the schema migration.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("Job store initialized",
		slog.String("path", dbPath),
	)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id               TEXT PRIMARY KEY,
			status           TEXT NOT NULL DEFAULT 'queued',
			filename         TEXT NOT NULL,
			user_id          TEXT NOT NULL DEFAULT '',
			upload_path      TEXT NOT NULL DEFAULT '',
			result_path      TEXT NOT NULL DEFAULT '',
			error            TEXT NOT NULL DEFAULT '',
			current_page     INTEGER NOT NULL DEFAULT 0,
			total_pages      INTEGER NOT NULL DEFAULT 0,
			total_components INTEGER NOT NULL DEFAULT 0,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status     ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

		CREATE TABLE IF NOT EXISTS feedback (
			id         TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL,
			type       TEXT NOT NULL CHECK(type IN ('bug', 'content_violation')),
			message    TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
	`)
	return err
}

// Create inserts a new queued job and returns its id (undashed hex).
func (s *SQLiteStore) Create(ctx context.Context, filename, uploadPath, userID string) (string, error) {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, filename, user_id, upload_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, StatusQueued, filename, userID, uploadPath, now, now)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", id),
		slog.String("filename", filename),
	)
	return id, nil
}

// Get returns the job with the given id, or ErrJobNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, filename, user_id, upload_path, result_path, error,
		       current_page, total_pages, total_components, created_at, updated_at
		FROM jobs WHERE id = ?
	`, NormalizeID(id))

	j := &Job{}
	err := row.Scan(
		&j.ID, &j.Status, &j.Filename, &j.UserID, &j.UploadPath, &j.ResultPath,
		&j.Error, &j.CurrentPage, &j.TotalPages, &j.TotalComponents,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// Claim transitions a queued job to processing. The status guard in the WHERE
// clause makes the claim safe against concurrent workers.
func (s *SQLiteStore) Claim(ctx context.Context, id string) (*Job, error) {
	id = NormalizeID(id)
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, StatusProcessing, now, id, StatusQueued)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim job %s: rows affected: %w", id, err)
	}
	if n == 0 {
		s.logger.Warn("Failed to claim job - already claimed or not found",
			slog.String("job_id", id),
		)
		return nil, ErrJobAlreadyClaimed
	}

	return s.Get(ctx, id)
}

// UpdateStatus sets the job status plus any fields supplied in upd.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status, upd StatusUpdate) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{status, time.Now().UTC()}

	if upd.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *upd.Error)
	}
	if upd.ResultPath != nil {
		sets = append(sets, "result_path = ?")
		args = append(args, *upd.ResultPath)
	}
	if upd.CurrentPage != nil {
		sets = append(sets, "current_page = ?")
		args = append(args, *upd.CurrentPage)
	}
	if upd.TotalPages != nil {
		sets = append(sets, "total_pages = ?")
		args = append(args, *upd.TotalPages)
	}
	if upd.TotalComponents != nil {
		sets = append(sets, "total_components = ?")
		args = append(args, *upd.TotalComponents)
	}
	args = append(args, NormalizeID(id))

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = ?", strings.Join(sets, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update status for job %s: %w", id, err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", NormalizeID(id)),
		slog.String("status", string(status)),
	)
	return nil
}

// UpdateProgress records the page counters for a processing job.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, currentPage, totalPages int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET current_page = ?, total_pages = ?, updated_at = ?
		WHERE id = ?
	`, currentPage, totalPages, time.Now().UTC(), NormalizeID(id))
	if err != nil {
		return fmt.Errorf("update progress for job %s: %w", id, err)
	}
	return nil
}

// Delete removes a job row. Returns false if no row existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, NormalizeID(id))
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete job %s: rows affected: %w", id, err)
	}
	return n > 0, nil
}

// OlderThan returns jobs created before the cutoff.
func (s *SQLiteStore) OlderThan(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, filename, user_id, upload_path, result_path, error,
		       current_page, total_pages, total_components, created_at, updated_at
		FROM jobs WHERE created_at < ?
	`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list old jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		if err := rows.Scan(
			&j.ID, &j.Status, &j.Filename, &j.UserID, &j.UploadPath, &j.ResultPath,
			&j.Error, &j.CurrentPage, &j.TotalPages, &j.TotalComponents,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan old job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// DeleteOlderThan removes jobs created before the cutoff and returns the count.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("Cleaned up old jobs", slog.Int64("count", n))
	}
	return int(n), nil
}

// CreateFeedback stores a feedback entry and returns its id.
func (s *SQLiteStore) CreateFeedback(ctx context.Context, jobID, feedbackType, message string) (string, error) {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, job_id, type, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, NormalizeID(jobID), feedbackType, message, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("create feedback: %w", err)
	}

	s.logger.Info("Feedback created",
		slog.String("feedback_id", id),
		slog.String("job_id", NormalizeID(jobID)),
		slog.String("type", feedbackType),
	)
	return id, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
