package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/yoink-app/yoink-be/internal/auth"
	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/metrics"
	"github.com/yoink-app/yoink-be/internal/objstore"
	"github.com/yoink-app/yoink-be/internal/persist"
)

// Publisher enqueues extraction jobs for the worker service.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// UserJobStore is the persisted-jobs surface the handlers need.
type UserJobStore interface {
	GetJob(ctx context.Context, jobID, userID string) (*persist.Job, error)
	ListJobs(ctx context.Context, userID string) ([]persist.Job, error)
	CountJobs(ctx context.Context, userID string) (int, error)
	DeleteJob(ctx context.Context, jobID, userID string) (string, error)
}

// ObjectStore is the bucket surface used when deleting persisted jobs.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Remove(ctx context.Context, bucket string, paths []string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Jobs         jobstore.Store
	UserJobs     UserJobStore
	Publisher    Publisher
	Verifier     *auth.Verifier
	Objects      ObjectStore
	Guest        *objstore.GuestStore
	Metrics      *metrics.Metrics
	UploadDir    string
	SlotCapacity int
	AuthBaseURL  string
	AppOrigin    string
	PollInterval time.Duration
}

// Handler handles extraction HTTP requests
type Handler struct {
	logger       *slog.Logger
	jobs         jobstore.Store
	userJobs     UserJobStore
	publisher    Publisher
	verifier     *auth.Verifier
	objects      ObjectStore
	guest        *objstore.GuestStore
	metrics      *metrics.Metrics
	uploadDir    string
	slotCapacity int
	authBaseURL  string
	appOrigin    string
	pollInterval time.Duration
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	pollInterval := deps.PollInterval
	if pollInterval == 0 {
		pollInterval = time.Second
	}
	slotCapacity := deps.SlotCapacity
	if slotCapacity == 0 {
		slotCapacity = 5
	}
	return &Handler{
		logger:       deps.Logger,
		jobs:         deps.Jobs,
		userJobs:     deps.UserJobs,
		publisher:    deps.Publisher,
		verifier:     deps.Verifier,
		objects:      deps.Objects,
		guest:        deps.Guest,
		metrics:      deps.Metrics,
		uploadDir:    deps.UploadDir,
		slotCapacity: slotCapacity,
		authBaseURL:  deps.AuthBaseURL,
		appOrigin:    deps.AppOrigin,
		pollInterval: pollInterval,
	}
}
