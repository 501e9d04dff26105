package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/results"
	"github.com/yoink-app/yoink-be/internal/session"
)

// jobBackend adapts the local job store to the session controller.
type jobBackend struct {
	jobs jobstore.Store
}

func (b *jobBackend) JobState(ctx context.Context, jobID string) (*session.JobState, error) {
	job, err := b.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &session.JobState{
		ID:          job.ID,
		Status:      string(job.Status),
		Filename:    job.Filename,
		CurrentPage: job.CurrentPage,
		TotalPages:  job.TotalPages,
		Error:       job.Error,
	}, nil
}

func (b *jobBackend) GuestResult(ctx context.Context, jobID string) (*session.GuestResult, error) {
	job, err := b.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	doc, err := results.ReadDocument(job.ResultPath)
	if err != nil {
		return nil, err
	}
	return &session.GuestResult{
		JobID:           doc.JobID,
		SourceFile:      doc.SourceFile,
		TotalPages:      doc.TotalPages,
		TotalComponents: doc.TotalComponents,
		Components:      doc.Components,
	}, nil
}

// StreamEvents handles GET /api/v1/jobs/:job_id/events
// Streams session snapshots over SSE while the job runs. Each connection gets
// its own session whose lifecycle tracking stops when the client goes away.
func (h *Handler) StreamEvents(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := h.jobs.Get(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return
	}

	store := session.NewStore(h.slotCapacity)
	if user := UserFromContext(c); user != nil {
		store.SetUser(&session.User{ID: user.ID, Email: user.Email})
		if jobs, err := h.userJobs.ListJobs(c.Request.Context(), user.ID); err == nil {
			summaries := make([]session.JobSummary, len(jobs))
			for i, job := range jobs {
				summaries[i] = session.JobSummary{
					ID:        job.ID,
					Title:     job.Title,
					Status:    job.Status,
					CreatedAt: job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				}
			}
			store.SetUserJobs(summaries)
		}
	}

	sub := store.Subscribe()
	defer store.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	controller := session.NewController(store, &jobBackend{jobs: h.jobs}, h.pollInterval, h.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := controller.Run(ctx, jobID); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("Session tracking stopped",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", store.Snapshot())
	c.Writer.Flush()

	finished := false
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			if finished {
				return false
			}
			if snap.Status.IsTerminal() {
				// flush the terminal snapshot, then close on the next tick
				finished = true
			}
			return true
		case <-done:
			c.SSEvent("snapshot", store.Snapshot())
			return false
		case <-ctx.Done():
			return false
		}
	})
}
