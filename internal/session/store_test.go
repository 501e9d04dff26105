package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoink-app/yoink-be/internal/results"
)

func TestStore_InitialState(t *testing.T) {
	s := NewStore(5)
	snap := s.Snapshot()

	assert.Nil(t, snap.User)
	assert.Empty(t, snap.ActiveJobID)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, Progress{}, snap.Progress)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 5, snap.SlotCapacity)
}

func TestStore_SetActiveJobResetsProgressAndError(t *testing.T) {
	s := NewStore(5)

	s.SetActiveJob("job-1")
	s.UpdateJobStatus(StatusProcessing, &Progress{Current: 4, Total: 10}, nil)
	msg := "boom"
	s.UpdateJobStatus(StatusFailed, nil, &msg)

	s.SetActiveJob("job-2")
	snap := s.Snapshot()
	assert.Equal(t, "job-2", snap.ActiveJobID)
	assert.Equal(t, StatusUploading, snap.Status)
	assert.Equal(t, Progress{}, snap.Progress)
	assert.Empty(t, snap.Error)
}

func TestStore_SetActiveJobEmptyMeansIdle(t *testing.T) {
	s := NewStore(5)
	s.SetActiveJob("job-1")
	s.SetActiveJob("")

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.ActiveJobID)
}

func TestStore_ProgressNeverExceedsTotal(t *testing.T) {
	s := NewStore(5)
	s.SetActiveJob("job-1")

	updates := []Progress{
		{Current: 1, Total: 12},
		{Current: 12, Total: 12},
		{Current: 15, Total: 12}, // over-reporting backend
	}
	for _, p := range updates {
		s.UpdateJobStatus(StatusProcessing, &p, nil)
		snap := s.Snapshot()
		if snap.Progress.Total > 0 {
			assert.LessOrEqual(t, snap.Progress.Current, snap.Progress.Total)
		}
	}
}

func TestStore_UpdateJobStatusPartialUpdatePreservesFields(t *testing.T) {
	s := NewStore(5)
	s.SetActiveJob("job-1")
	s.UpdateJobStatus(StatusProcessing, &Progress{Current: 7, Total: 12}, nil)

	// Status-only transition: progress and error stay exactly as they were.
	s.UpdateJobStatus(StatusQueued, nil, nil)
	snap := s.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, Progress{Current: 7, Total: 12}, snap.Progress)
	assert.Empty(t, snap.Error)

	msg := "page 8 render failed"
	s.UpdateJobStatus(StatusFailed, nil, &msg)
	s.UpdateJobStatus(StatusFailed, nil, nil)
	snap = s.Snapshot()
	assert.Equal(t, "page 8 render failed", snap.Error)
	assert.Equal(t, Progress{Current: 7, Total: 12}, snap.Progress)
}

func TestStore_ResetActiveJobFromAnyState(t *testing.T) {
	states := []func(s *Store){
		func(s *Store) {}, // idle
		func(s *Store) { s.SetActiveJob("j") },
		func(s *Store) {
			s.SetActiveJob("j")
			s.UpdateJobStatus(StatusProcessing, &Progress{Current: 3, Total: 9}, nil)
		},
		func(s *Store) {
			s.SetActiveJob("j")
			msg := "nope"
			s.UpdateJobStatus(StatusFailed, nil, &msg)
		},
		func(s *Store) {
			s.SetActiveJob("j")
			s.UpdateJobStatus(StatusCompleted, nil, nil)
		},
	}

	for _, setup := range states {
		s := NewStore(5)
		setup(s)
		s.ResetActiveJob()

		snap := s.Snapshot()
		assert.Empty(t, snap.ActiveJobID)
		assert.Equal(t, StatusIdle, snap.Status)
		assert.Equal(t, Progress{}, snap.Progress)
		assert.Empty(t, snap.Error)
	}
}

func TestStore_SetUserJobsDerivesSlotCount(t *testing.T) {
	s := NewStore(5)

	s.SetUserJobs([]JobSummary{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	snap := s.Snapshot()
	assert.Equal(t, 3, snap.SlotsUsed)
	assert.Len(t, snap.UserJobs, 3)

	s.SetUserJobs(nil)
	assert.Equal(t, 0, s.Snapshot().SlotsUsed)
}

func TestStore_SubscribeReceivesSnapshots(t *testing.T) {
	s := NewStore(5)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.SetActiveJob("job-1")

	snap := <-ch
	assert.Equal(t, "job-1", snap.ActiveJobID)
	assert.Equal(t, StatusUploading, snap.Status)
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	s := NewStore(5)
	ch := s.Subscribe()
	s.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Mutations after unsubscribe must not panic.
	s.SetActiveJob("job-1")
}

// TestStore_GuestUploadScenario walks the full guest flow: upload, queued,
// page-by-page processing, completion with a guest result.
func TestStore_GuestUploadScenario(t *testing.T) {
	s := NewStore(5)

	s.SetActiveJob("job-1")
	require.Equal(t, StatusUploading, s.Snapshot().Status)

	s.UpdateJobStatus(StatusQueued, nil, nil)
	require.Equal(t, StatusQueued, s.Snapshot().Status)

	for page := 1; page <= 12; page++ {
		s.UpdateJobStatus(StatusProcessing, &Progress{Current: page, Total: 12}, nil)
		snap := s.Snapshot()
		require.Equal(t, StatusProcessing, snap.Status)
		require.Equal(t, page, snap.Progress.Current)
	}

	s.UpdateJobStatus(StatusCompleted, nil, nil)
	s.SetGuestResult(&GuestResult{
		JobID:           "job-1",
		SourceFile:      "lecture.pdf",
		TotalPages:      12,
		TotalComponents: 3,
		Components: []results.Component{
			{ID: 0, PageNumber: 1, Category: results.CategoryText, URL: "/static/guest/job-1/0.png"},
			{ID: 1, PageNumber: 4, Category: results.CategoryFigure, URL: "/static/guest/job-1/1.png"},
			{ID: 2, PageNumber: 12, Category: results.CategoryMisc, URL: "/static/guest/job-1/2.png"},
		},
	})

	snap := s.Snapshot()
	// The processing overlay disappears exactly when status turns completed.
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, Progress{Current: 12, Total: 12}, snap.Progress)
	require.NotNil(t, snap.GuestResult)
	assert.Equal(t, "lecture.pdf", snap.GuestResult.SourceFile)
	assert.Equal(t, 3, snap.GuestResult.TotalComponents)
	assert.Len(t, snap.GuestResult.Components, 3)
	assert.Len(t, snap.PageControls, 12)
}
