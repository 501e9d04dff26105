package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoink-app/yoink-be/internal/api/dto"
	"github.com/yoink-app/yoink-be/internal/jobstore"
)

// SubmitFeedback handles POST /api/v1/feedback
// Records a bug report or content violation report against an existing job.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid feedback payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "type must be bug or content_violation and job_id is required",
		})
		return
	}

	if _, err := h.jobs.Get(c.Request.Context(), req.JobID); err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job for feedback", slog.String("job_id", req.JobID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store feedback",
		})
		return
	}

	id, err := h.jobs.CreateFeedback(c.Request.Context(), req.JobID, req.Type, req.Message)
	if err != nil {
		h.logger.Error("Failed to store feedback", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to store feedback",
		})
		return
	}

	h.logger.Info("Feedback recorded",
		slog.String("feedback_id", id),
		slog.String("type", req.Type),
		slog.String("job_id", req.JobID),
	)

	c.JSON(http.StatusCreated, dto.FeedbackResponse{
		ID:     id,
		Status: "received",
	})
}
