package jobstore

import (
	"context"
	"time"
)

// StatusUpdate carries the optional fields that may be set together with a
// status transition. Nil fields are left untouched.
type StatusUpdate struct {
	Error           *string
	ResultPath      *string
	CurrentPage     *int
	TotalPages      *int
	TotalComponents *int
}

// Store is the local job state store shared by the API and worker services.
type Store interface {
	Create(ctx context.Context, filename, uploadPath, userID string) (string, error)
	Get(ctx context.Context, id string) (*Job, error)
	Claim(ctx context.Context, id string) (*Job, error)
	UpdateStatus(ctx context.Context, id string, status Status, upd StatusUpdate) error
	UpdateProgress(ctx context.Context, id string, currentPage, totalPages int) error
	Delete(ctx context.Context, id string) (bool, error)

	// OlderThan returns jobs created before the cutoff, for retention sweeps.
	OlderThan(ctx context.Context, cutoff time.Time) ([]*Job, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	CreateFeedback(ctx context.Context, jobID, feedbackType, message string) (string, error)

	Close() error
}
