package jobstore

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of an extraction job as tracked locally.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDelivered  Status = "delivered"
)

// IsTerminal reports whether the job has finished processing.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDelivered
}

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusDelivered:
		return true
	}
	return false
}

var (
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when claiming a job that is not queued,
	// e.g. because another worker got to it first.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in queued status")

	ErrInvalidStatus = errors.New("invalid job status")
)

// Job is one extraction request tracked from upload through completion.
// UserID is empty for guest jobs.
type Job struct {
	ID              string
	Status          Status
	Filename        string
	UserID          string
	UploadPath      string
	ResultPath      string
	Error           string
	CurrentPage     int
	TotalPages      int
	TotalComponents int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FeedbackTypes are the accepted values for Feedback.Type.
const (
	FeedbackBug              = "bug"
	FeedbackContentViolation = "content_violation"
)

// Feedback is a user-submitted report attached to a job.
type Feedback struct {
	ID        string
	JobID     string
	Type      string
	Message   string
	CreatedAt time.Time
}

// NormalizeID strips dashes from a job id. The hosted database hands out
// dashed UUIDs while jobs are stored locally in hex form, so both spellings
// must address the same row.
func NormalizeID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
