package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/metrics"
	"github.com/yoink-app/yoink-be/internal/objstore"
	"github.com/yoink-app/yoink-be/internal/persist"
	"github.com/yoink-app/yoink-be/internal/pipeline"
	"github.com/yoink-app/yoink-be/internal/worker/domain"
	"github.com/yoink-app/yoink-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Jobs          jobstore.Store
	UserJobs      *persist.Store
	RabbitClient  *rabbitmq.Client
	Pipeline      *pipeline.Pipeline
	Objects       *objstore.Client
	Guest         *objstore.GuestStore
	Metrics       *metrics.Metrics
	WorkerID      string
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes extraction jobs from the queue and runs them through the
// pipeline.
type Worker struct {
	logger        *slog.Logger
	jobs          jobstore.Store
	userJobs      *persist.Store
	rabbitClient  *rabbitmq.Client
	pipeline      *pipeline.Pipeline
	objects       *objstore.Client
	guest         *objstore.GuestStore
	metrics       *metrics.Metrics
	workerID      string
	queueName     string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration

	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		jobs:          cfg.Jobs,
		userJobs:      cfg.UserJobs,
		rabbitClient:  cfg.RabbitClient,
		pipeline:      cfg.Pipeline,
		objects:       cfg.Objects,
		guest:         cfg.Guest,
		metrics:       cfg.Metrics,
		workerID:      cfg.WorkerID,
		queueName:     cfg.QueueName,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins processing jobs and blocks until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
