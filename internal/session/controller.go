package session

import (
	"context"
	"log/slog"
	"time"
)

// JobState is the extraction backend's view of one job, as consumed by the
// controller.
type JobState struct {
	ID          string
	Status      string // queued | processing | completed | failed | delivered
	Filename    string
	CurrentPage int
	TotalPages  int
	Error       string
}

// Backend is the slice of the extraction service the controller needs: a job
// status poll and, for guest sessions, the completed result.
type Backend interface {
	JobState(ctx context.Context, jobID string) (*JobState, error)
	GuestResult(ctx context.Context, jobID string) (*GuestResult, error)
}

// Controller drives a session store through the job lifecycle by polling the
// extraction backend and translating its responses into store operations.
type Controller struct {
	store    *Store
	backend  Backend
	interval time.Duration
	logger   *slog.Logger
}

// NewController creates a controller polling at the given interval.
func NewController(store *Store, backend Backend, interval time.Duration, logger *slog.Logger) *Controller {
	return &Controller{store: store, backend: backend, interval: interval, logger: logger}
}

// Run marks jobID as the session's active job and polls until the job reaches
// a terminal state, the context is canceled, or the session abandons the job.
// Every poll is tagged with the job id it was issued for; a response whose tag
// no longer matches the store's active job is discarded, so a late answer for
// an abandoned job can never mutate the session.
func (c *Controller) Run(ctx context.Context, jobID string) error {
	c.store.SetActiveJob(jobID)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		state, err := c.backend.JobState(ctx, jobID)

		// Stale-response guard: the session may have reset or replaced the
		// active job while the poll was in flight.
		if c.store.ActiveJobID() != jobID {
			c.logger.Debug("Discarding poll for abandoned job",
				slog.String("job_id", jobID),
			)
			return nil
		}

		if err != nil {
			c.logger.Warn("Job poll failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			continue
		}

		done, err := c.apply(ctx, jobID, state)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// apply translates one backend response into store operations. It returns
// done=true once a terminal status has been written.
func (c *Controller) apply(ctx context.Context, jobID string, state *JobState) (bool, error) {
	switch state.Status {
	case "queued":
		c.store.UpdateJobStatus(StatusQueued, nil, nil)

	case "processing":
		c.store.UpdateJobStatus(StatusProcessing, &Progress{
			Current: state.CurrentPage,
			Total:   state.TotalPages,
		}, nil)

	case "completed", "delivered":
		c.store.UpdateJobStatus(StatusCompleted, &Progress{
			Current: state.TotalPages,
			Total:   state.TotalPages,
		}, nil)

		if c.store.Snapshot().User == nil {
			result, err := c.backend.GuestResult(ctx, jobID)
			if err != nil {
				c.logger.Warn("Guest result fetch failed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
				return true, nil
			}
			if c.store.ActiveJobID() == jobID {
				c.store.SetGuestResult(result)
			}
		}
		return true, nil

	case "failed":
		errMsg := state.Error
		c.store.UpdateJobStatus(StatusFailed, nil, &errMsg)
		return true, nil

	default:
		c.logger.Warn("Unknown job status from backend",
			slog.String("job_id", jobID),
			slog.String("status", state.Status),
		)
	}
	return false, nil
}
