package dto

import (
	"github.com/yoink-app/yoink-be/internal/results"
)

type ExtractResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Filename        string `json:"filename"`
	CurrentPage     int    `json:"current_page"`
	TotalPages      int    `json:"total_pages"`
	TotalComponents int    `json:"total_components"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ComponentsRequest struct {
	Offset     int      `form:"offset"`
	Limit      int      `form:"limit"`
	Categories []string `form:"category"`
}

type ComponentsResponse struct {
	JobID      string              `json:"job_id"`
	Total      int                 `json:"total"`
	Offset     int                 `json:"offset"`
	Limit      int                 `json:"limit"`
	HasMore    bool                `json:"has_more"`
	Components []results.Component `json:"components"`
}

type FeedbackRequest struct {
	Type    string `json:"type" binding:"required,oneof=bug content_violation"`
	Message string `json:"message"`
	JobID   string `json:"job_id" binding:"required"`
	Email   string `json:"email"`
}

type FeedbackResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type SignInResponse struct {
	URL string `json:"url"`
}

type UserJobDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	StoragePath string `json:"storage_path"`
	CreatedAt   string `json:"created_at"`
}

type ListUserJobsResponse struct {
	Jobs     []UserJobDTO `json:"jobs"`
	Slots    int          `json:"slots_used"`
	Capacity int          `json:"slot_capacity"`
}
