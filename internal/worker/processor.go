package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/results"
	"github.com/yoink-app/yoink-be/internal/worker/domain"
)

// processJob runs one extraction job end to end: claim, pipeline, result
// delivery, and the final status transition.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	job, err := w.jobs.Claim(ctx, msg.JobID)
	if err != nil {
		switch {
		case errors.Is(err, jobstore.ErrJobAlreadyClaimed):
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job already claimed: %w", err)
		case errors.Is(err, jobstore.ErrJobNotFound):
			w.logger.Warn("Job vanished before processing",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("%w: %s", domain.ErrJobGone, msg.JobID)
		default:
			// Store error - could be transient
			return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
		}
	}

	if w.metrics != nil {
		w.metrics.JobsInFlight.Inc()
		defer w.metrics.JobsInFlight.Dec()
	}
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outputDir := filepath.Dir(job.UploadPath)
	progress := func(current, total int) {
		if err := w.jobs.UpdateProgress(jobCtx, job.ID, current, total); err != nil {
			w.logger.Warn("Failed to record progress",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		if w.metrics != nil {
			w.metrics.PagesProcessed.Inc()
		}
	}

	out, _, err := w.pipeline.Run(jobCtx, job.Filename, job.UploadPath, outputDir, progress)
	if err != nil {
		w.markFailed(ctx, job.ID, fmt.Sprintf("extraction failed: %s", err))
		return fmt.Errorf("pipeline failed for job %s: %w", job.ID, err)
	}

	doc, err := w.deliverResults(jobCtx, job, out)
	if err != nil {
		w.markFailed(ctx, job.ID, fmt.Sprintf("result delivery failed: %s", err))
		return fmt.Errorf("result delivery failed for job %s: %w", job.ID, err)
	}

	stem := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	resultPath := filepath.Join(outputDir, stem+"_result.json")
	if err := results.WriteDocument(doc, resultPath); err != nil {
		w.markFailed(ctx, job.ID, fmt.Sprintf("result delivery failed: %s", err))
		return fmt.Errorf("write result for job %s: %w", job.ID, err)
	}

	if err := w.jobs.UpdateStatus(ctx, job.ID, jobstore.StatusCompleted, jobstore.StatusUpdate{
		ResultPath:      &resultPath,
		CurrentPage:     &out.TotalPages,
		TotalPages:      &out.TotalPages,
		TotalComponents: &out.TotalComponents,
	}); err != nil {
		w.logger.Error("Failed to mark job completed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		// Results are delivered; still ACK the message
	}

	if w.metrics != nil {
		w.metrics.JobsProcessed.WithLabelValues(string(jobstore.StatusCompleted)).Inc()
		w.metrics.ProcessingSeconds.Observe(time.Since(start).Seconds())
		for _, comp := range doc.Components {
			w.metrics.ComponentsExtracted.WithLabelValues(comp.Category).Inc()
		}
	}

	w.logger.Info("Job finished",
		slog.String("job_id", job.ID),
		slog.Int("pages", out.TotalPages),
		slog.Int("components", out.TotalComponents),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// markFailed records a failure on the job. ctx may already be expired when
// the failure was a timeout, so a fresh deadline is used for the write.
func (w *Worker) markFailed(ctx context.Context, jobID, message string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := w.jobs.UpdateStatus(writeCtx, jobID, jobstore.StatusFailed, jobstore.StatusUpdate{
		Error: &message,
	}); err != nil {
		w.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	if w.metrics != nil {
		w.metrics.JobsProcessed.WithLabelValues(string(jobstore.StatusFailed)).Inc()
	}
}
