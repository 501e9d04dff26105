package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yoink-app/yoink-be/internal/api/dto"
	"github.com/yoink-app/yoink-be/internal/auth"
	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/upload"
)

// ContextUserKey is where the auth middleware stores the verified user.
const ContextUserKey = "current_user"

// UserFromContext returns the authenticated user, or nil for guests.
func UserFromContext(c *gin.Context) *auth.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// Extract handles POST /api/v1/extract
// Accepts a document upload and queues it for extraction.
func (h *Handler) Extract(c *gin.Context) {
	user := UserFromContext(c)
	actor := "guest"
	if user != nil {
		actor = "user"
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing upload file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file is required",
		})
		return
	}

	if err := upload.Validate(header.Header.Get("Content-Type"), header.Size); err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "file exceeds the 100MB limit",
			})
		case errors.Is(err, upload.ErrUnsupportedType):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "unsupported file type",
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		}
		return
	}

	userID := ""
	if user != nil {
		userID = user.ID

		count, err := h.userJobs.CountJobs(c.Request.Context(), userID)
		if err != nil {
			h.logger.Error("Failed to count user jobs", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to check job slots",
			})
			return
		}
		if count >= h.slotCapacity {
			c.JSON(http.StatusConflict, gin.H{
				"error":         "all job slots are in use, delete a job first",
				"slots_used":    count,
				"slot_capacity": h.slotCapacity,
			})
			return
		}
	}

	dir := filepath.Join(h.uploadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logger.Error("Failed to create upload dir", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store upload",
		})
		return
	}

	filename := filepath.Base(header.Filename)
	uploadPath := filepath.Join(dir, filename)
	if err := c.SaveUploadedFile(header, uploadPath); err != nil {
		h.logger.Error("Failed to save upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store upload",
		})
		return
	}

	jobID, err := h.jobs.Create(c.Request.Context(), filename, uploadPath, userID)
	if err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		_ = os.RemoveAll(dir)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create job",
		})
		return
	}

	body, err := json.Marshal(gin.H{"job_id": jobID})
	if err != nil {
		h.logger.Error("Failed to marshal job message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to queue job",
		})
		return
	}
	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		failure := "could not queue job for processing"
		_ = h.jobs.UpdateStatus(c.Request.Context(), jobID, jobstore.StatusFailed, jobstore.StatusUpdate{Error: &failure})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to queue job",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.JobsSubmitted.WithLabelValues(actor).Inc()
	}

	h.logger.Info("Extraction job queued",
		slog.String("job_id", jobID),
		slog.String("filename", filename),
		slog.String("actor", actor),
	)

	c.JSON(http.StatusAccepted, dto.ExtractResponse{
		JobID:  jobID,
		Status: string(jobstore.StatusQueued),
	})
}
