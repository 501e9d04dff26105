package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoink-app/yoink-be/internal/api/dto"
	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/objstore"
	"github.com/yoink-app/yoink-be/internal/persist"
	"github.com/yoink-app/yoink-be/internal/results"
)

const defaultComponentsLimit = 20

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the lifecycle state of a job.
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if errors.Is(err, jobstore.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.JobStatusResponse{
		JobID:           job.ID,
		Status:          string(job.Status),
		Filename:        job.Filename,
		CurrentPage:     job.CurrentPage,
		TotalPages:      job.TotalPages,
		TotalComponents: job.TotalComponents,
		Error:           job.Error,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	})
}

// GetResult handles GET /api/v1/jobs/:job_id/result
// Guests get the full component list and the first successful fetch marks the
// job delivered. User jobs return metadata only; their components live in the
// persisted row and the bucket.
func (h *Handler) GetResult(c *gin.Context) {
	jobID := c.Param("job_id")

	doc, job, ok := h.loadResult(c, jobID)
	if !ok {
		return
	}

	if job == nil || job.UserID != "" {
		doc.Components = nil
		c.JSON(http.StatusOK, doc)
		return
	}

	if job.Status == jobstore.StatusCompleted {
		if err := h.jobs.UpdateStatus(c.Request.Context(), job.ID, jobstore.StatusDelivered, jobstore.StatusUpdate{}); err != nil {
			h.logger.Warn("Failed to mark job delivered",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.JSON(http.StatusOK, doc)
}

// GetComponents handles GET /api/v1/jobs/:job_id/result/components
// Returns a window of the result's components for incremental loading.
func (h *Handler) GetComponents(c *gin.Context) {
	jobID := c.Param("job_id")

	var req dto.ComponentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid query parameters",
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultComponentsLimit
	}

	doc, _, ok := h.loadResult(c, jobID)
	if !ok {
		return
	}

	components := doc.Components
	if len(req.Categories) > 0 {
		components = results.NewCategoryFilter(req.Categories...).Apply(components)
	}

	batch := results.Window(components, req.Offset, req.Limit)
	c.JSON(http.StatusOK, dto.ComponentsResponse{
		JobID:      doc.JobID,
		Total:      len(components),
		Offset:     batch.Offset,
		Limit:      req.Limit,
		HasMore:    batch.HasMore,
		Components: batch.Components,
	})
}

// loadResult resolves a job's result document, preferring the local store and
// falling back to the persisted copy for authenticated users. On failure it
// writes the error response and returns ok=false. job is nil when served from
// the persisted copy.
func (h *Handler) loadResult(c *gin.Context, jobID string) (results.Document, *jobstore.Job, bool) {
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil && !errors.Is(err, jobstore.ErrJobNotFound) {
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return results.Document{}, nil, false
	}

	if job != nil {
		if !job.Status.IsTerminal() || job.Status == jobstore.StatusFailed {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "job has no result",
				"status": string(job.Status),
			})
			return results.Document{}, nil, false
		}
		doc, err := results.ReadDocument(job.ResultPath)
		if err != nil {
			h.logger.Error("Failed to read result document",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to load result",
			})
			return results.Document{}, nil, false
		}
		return doc, job, true
	}

	// Expired locally; authenticated users can still fetch the persisted copy.
	user := UserFromContext(c)
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return results.Document{}, nil, false
	}

	persisted, err := h.userJobs.GetJob(c.Request.Context(), jobID, user.ID)
	if errors.Is(err, persist.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return results.Document{}, nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get persisted job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return results.Document{}, nil, false
	}

	var resultsDoc persist.ResultsDoc
	if err := json.Unmarshal(persisted.Results, &resultsDoc); err != nil {
		h.logger.Error("Corrupt persisted results", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to load result",
		})
		return results.Document{}, nil, false
	}

	return results.Document{
		JobID:           persisted.ID,
		SourceFile:      persisted.Title,
		TotalPages:      resultsDoc.TotalPages,
		TotalComponents: resultsDoc.TotalComponents,
		Components:      resultsDoc.Components,
	}, nil, true
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id
// Removes a job everywhere it is tracked: the local store, its working files,
// and for authenticated users the persisted row and its bucket objects.
func (h *Handler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	user := UserFromContext(c)

	deleted := false

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil && !errors.Is(err, jobstore.ErrJobNotFound) {
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to delete job",
		})
		return
	}
	if job != nil {
		if _, err := h.jobs.Delete(c.Request.Context(), jobID); err != nil {
			h.logger.Error("Failed to delete job", slog.String("job_id", jobID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to delete job",
			})
			return
		}
		if job.UploadPath != "" {
			if err := os.RemoveAll(filepath.Dir(job.UploadPath)); err != nil {
				h.logger.Warn("Failed to remove job files",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
		if job.UserID == "" && h.guest != nil {
			if err := h.guest.Cleanup(job.ID); err != nil {
				h.logger.Warn("Failed to remove guest images",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
		deleted = true
	}

	if user != nil {
		storagePath, err := h.userJobs.DeleteJob(c.Request.Context(), jobID, user.ID)
		switch {
		case errors.Is(err, persist.ErrJobNotFound):
			// nothing persisted for this job
		case err != nil:
			h.logger.Error("Failed to delete persisted job", slog.String("job_id", jobID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to delete job",
			})
			return
		default:
			deleted = true
			h.removeBucketObjects(c, jobID, storagePath)
		}
	}

	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	h.logger.Info("Job deleted", slog.String("job_id", jobID))
	c.Status(http.StatusNoContent)
}

// removeBucketObjects clears a deleted job's images out of the bucket. The
// database row is already gone; bucket failures are logged, not surfaced.
func (h *Handler) removeBucketObjects(c *gin.Context, jobID, storagePath string) {
	prefix := strings.TrimPrefix(storagePath, objstore.Bucket+"/")
	names, err := h.objects.List(c.Request.Context(), objstore.Bucket, prefix)
	if err != nil {
		h.logger.Warn("Failed to list bucket objects",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, prefix+name)
	}
	if err := h.objects.Remove(c.Request.Context(), objstore.Bucket, paths); err != nil {
		h.logger.Warn("Failed to remove bucket objects",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// ListUserJobs handles GET /api/v1/jobs
// Lists the authenticated user's persisted jobs with slot usage.
func (h *Handler) ListUserJobs(c *gin.Context) {
	user := UserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}

	jobs, err := h.userJobs.ListJobs(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list jobs",
		})
		return
	}

	jobResponse := make([]dto.UserJobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.UserJobDTO{
			ID:          job.ID,
			Title:       job.Title,
			Status:      job.Status,
			StoragePath: job.StoragePath,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, dto.ListUserJobsResponse{
		Jobs:     jobResponse,
		Slots:    len(jobs),
		Capacity: h.slotCapacity,
	})
}
