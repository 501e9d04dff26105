package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend replays a fixed sequence of job states, one per poll.
type scriptedBackend struct {
	mu     sync.Mutex
	states []JobState
	i      int
	result *GuestResult

	resultCalls int
}

func (b *scriptedBackend) JobState(ctx context.Context, jobID string) (*JobState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.states[b.i]
	if b.i < len(b.states)-1 {
		b.i++
	}
	s.ID = jobID
	return &s, nil
}

func (b *scriptedBackend) GuestResult(ctx context.Context, jobID string) (*GuestResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resultCalls++
	return b.result, nil
}

func TestController_GuestLifecycle(t *testing.T) {
	store := NewStore(5)
	backend := &scriptedBackend{
		states: []JobState{
			{Status: "queued"},
			{Status: "processing", CurrentPage: 1, TotalPages: 3},
			{Status: "processing", CurrentPage: 3, TotalPages: 3},
			{Status: "completed", TotalPages: 3},
		},
		result: &GuestResult{JobID: "job-1", SourceFile: "lecture.pdf", TotalPages: 3, TotalComponents: 2},
	}

	c := NewController(store, backend, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, c.Run(context.Background(), "job-1"))

	snap := store.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, Progress{Current: 3, Total: 3}, snap.Progress)
	require.NotNil(t, snap.GuestResult)
	assert.Equal(t, "lecture.pdf", snap.GuestResult.SourceFile)
	assert.Equal(t, 1, backend.resultCalls)
}

func TestController_FailedJobSurfacesError(t *testing.T) {
	store := NewStore(5)
	backend := &scriptedBackend{
		states: []JobState{
			{Status: "processing", CurrentPage: 2, TotalPages: 8},
			{Status: "failed", Error: "unsupported file type: '.txt'"},
		},
	}

	c := NewController(store, backend, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, c.Run(context.Background(), "job-2"))

	snap := store.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "unsupported file type: '.txt'", snap.Error)
	// Failure keeps the last known progress.
	assert.Equal(t, Progress{Current: 2, Total: 8}, snap.Progress)
	assert.Zero(t, backend.resultCalls)
}

func TestController_AuthenticatedSkipsGuestResult(t *testing.T) {
	store := NewStore(5)
	store.SetUser(&User{ID: "user-1"})
	backend := &scriptedBackend{
		states: []JobState{{Status: "completed", TotalPages: 2}},
	}

	c := NewController(store, backend, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, c.Run(context.Background(), "job-3"))

	assert.Equal(t, StatusCompleted, store.Snapshot().Status)
	assert.Zero(t, backend.resultCalls)
	assert.Nil(t, store.Snapshot().GuestResult)
}

// TestController_DiscardsStaleResponses covers the abandoned-job guard: once
// the session moves to a different job, a late poll result for the old id
// must not mutate the store.
func TestController_DiscardsStaleResponses(t *testing.T) {
	store := NewStore(5)
	backend := &stallBackend{
		polling: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	c := NewController(store, backend, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), "job-old") }()

	// Wait until the first poll is in flight, then replace the active job.
	<-backend.polling
	store.SetActiveJob("job-new")
	close(backend.release)

	require.NoError(t, <-done)

	snap := store.Snapshot()
	assert.Equal(t, "job-new", snap.ActiveJobID)
	assert.Equal(t, StatusUploading, snap.Status)
	assert.Equal(t, Progress{}, snap.Progress)
}

// stallBackend blocks each poll until released, then reports completed.
type stallBackend struct {
	polling chan struct{}
	release chan struct{}
}

func (b *stallBackend) JobState(ctx context.Context, jobID string) (*JobState, error) {
	select {
	case b.polling <- struct{}{}:
	default:
	}
	<-b.release
	return &JobState{ID: jobID, Status: "completed", TotalPages: 5}, nil
}

func (b *stallBackend) GuestResult(ctx context.Context, jobID string) (*GuestResult, error) {
	return &GuestResult{JobID: jobID}, nil
}
