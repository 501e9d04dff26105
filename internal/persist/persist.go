package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yoink-app/yoink-be/internal/results"
	"github.com/yoink-app/yoink-be/shared/postgresql"
)

// ErrJobNotFound is returned when a persisted job does not exist or belongs
// to another user.
var ErrJobNotFound = errors.New("job not found")

// Job is a completed extraction persisted for an authenticated user.
type Job struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	Title           string          `db:"title" json:"title"`
	Status          string          `db:"status" json:"status"`
	TotalPages      int             `db:"total_pages" json:"total_pages"`
	TotalComponents int             `db:"total_components" json:"total_components"`
	Results         json.RawMessage `db:"results" json:"results"`
	StoragePath     string          `db:"storage_path" json:"storage_path"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ResultsDoc is the shape stored in the results column.
type ResultsDoc struct {
	TotalPages      int                 `json:"total_pages"`
	TotalComponents int                 `json:"total_components"`
	Components      []results.Component `json:"components"`
}

type Store struct {
	db *sqlx.DB
}

func NewStore(pg *postgresql.Client) *Store {
	return &Store{
		db: pg.GetDB(),
	}
}

// SaveCompleted inserts the persisted row for a finished user job. The
// storage path is the bucket prefix the component images were uploaded under.
func (s *Store) SaveCompleted(ctx context.Context, jobID, userID, title, storagePath string, doc ResultsDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		INSERT INTO jobs (
			id, user_id, title, status, total_pages, total_components,
			results, storage_path, created_at, updated_at
		) VALUES (
			$1, $2, $3, 'completed', $4, $5,
			$6, $7, now(), now()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = 'completed',
			total_pages = EXCLUDED.total_pages,
			total_components = EXCLUDED.total_components,
			results = EXCLUDED.results,
			storage_path = EXCLUDED.storage_path,
			updated_at = now()
	`

	_, err = s.db.ExecContext(ctx, query, jobID, userID, title, doc.TotalPages, doc.TotalComponents, payload, storagePath)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob fetches one persisted job scoped to its owner.
func (s *Store) GetJob(ctx context.Context, jobID, userID string) (*Job, error) {
	var job Job
	query := `
		SELECT id, user_id, title, status, total_pages, total_components,
			results, storage_path, created_at, updated_at
		FROM jobs
		WHERE id = $1 AND user_id = $2
	`

	err := s.db.GetContext(ctx, &job, query, jobID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns a user's persisted jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, userID string) ([]Job, error) {
	query := `
		SELECT id, user_id, title, status, total_pages, total_components,
			results, storage_path, created_at, updated_at
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var jobs []Job
	err := s.db.SelectContext(ctx, &jobs, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns how many persisted jobs a user has. Slot limits are
// enforced against this count.
func (s *Store) CountJobs(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs WHERE user_id = $1`

	err := s.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// DeleteJob removes a persisted job scoped to its owner and returns the
// storage path whose objects should be removed from the bucket.
func (s *Store) DeleteJob(ctx context.Context, jobID, userID string) (string, error) {
	var storagePath string
	query := `
		DELETE FROM jobs
		WHERE id = $1 AND user_id = $2
		RETURNING storage_path
	`

	err := s.db.GetContext(ctx, &storagePath, query, jobID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete job: %w", err)
	}
	return storagePath, nil
}
