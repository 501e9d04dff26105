// Package cleanup sweeps expired jobs out of the local store and removes
// their working files. Persisted user jobs are not touched; only the
// ephemeral lifecycle records and on-disk artifacts expire.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/objstore"
)

const (
	DefaultRetention = 12 * time.Hour
	DefaultInterval  = time.Hour
)

type Sweeper struct {
	jobs      jobstore.Store
	guest     *objstore.GuestStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewSweeper(jobs jobstore.Store, guest *objstore.GuestStore, retention, interval time.Duration, logger *slog.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		jobs:      jobs,
		guest:     guest,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Retention sweeper started",
		slog.Duration("retention", s.retention),
		slog.Duration("interval", s.interval),
	)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep removes jobs older than the retention window along with their upload
// directories and guest images.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)

	jobs, err := s.jobs.OlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Retention sweep failed to list jobs",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(jobs) == 0 {
		return
	}

	for _, job := range jobs {
		if job.UploadPath != "" {
			if err := os.RemoveAll(filepath.Dir(job.UploadPath)); err != nil {
				s.logger.Warn("Failed to remove job files",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		if job.UserID == "" && s.guest != nil {
			if err := s.guest.Cleanup(job.ID); err != nil {
				s.logger.Warn("Failed to remove guest images",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	deleted, err := s.jobs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Retention sweep failed to delete jobs",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("Retention sweep finished",
		slog.Int("deleted", deleted),
		slog.Time("cutoff", cutoff),
	)
}
