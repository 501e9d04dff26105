// Package session implements the job/session state machine that coordinates
// upload, processing, and result display across guest and authenticated flows.
// A Store is the single source of truth for one client session; all mutation
// goes through its named operations and readers observe snapshots.
package session

import (
	"sync"

	"github.com/yoink-app/yoink-be/internal/results"
)

// Status is the lifecycle state of the active job within a session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the active job has reached completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress holds the page counters reported by the extraction backend.
// Current is meaningful only once Total > 0.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// User is the authenticated identity mirrored into the session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// GuestResult is an ephemeral, non-persisted job outcome for sessions
// without an account.
type GuestResult struct {
	JobID           string              `json:"job_id"`
	SourceFile      string              `json:"source_file"`
	TotalPages      int                 `json:"total_pages"`
	TotalComponents int                 `json:"total_components"`
	Components      []results.Component `json:"components"`
}

// JobSummary is one persisted job in the authenticated user's list.
type JobSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	TotalPages      int    `json:"total_pages"`
	TotalComponents int    `json:"total_components"`
	CreatedAt       string `json:"created_at"`
}

// Snapshot is an immutable copy of the session state handed to observers.
type Snapshot struct {
	User         *User        `json:"user"`
	ActiveJobID  string       `json:"active_job_id,omitempty"`
	Status       Status       `json:"status"`
	Progress     Progress     `json:"progress"`
	Error        string       `json:"error,omitempty"`
	GuestResult  *GuestResult `json:"guest_result,omitempty"`
	PageControls []int        `json:"page_controls,omitempty"`
	UserJobs     []JobSummary `json:"user_jobs,omitempty"`
	SlotsUsed    int          `json:"slots_used"`
	SlotCapacity int          `json:"slot_capacity"`
}

// Store is the shared mutable session state container. Mutation happens only
// through its methods; any number of readers may Subscribe for snapshots.
// Mutations are serialized by the lock; concurrent writers race and the last
// write wins.
type Store struct {
	mu sync.Mutex

	user        *User
	activeJobID string
	status      Status
	progress    Progress
	errMsg      string
	guestResult *GuestResult
	userJobs    []JobSummary
	slotCap     int

	subs []chan Snapshot
}

// NewStore returns a store in the idle state. slotCapacity is the fixed job
// quota reported in snapshots.
func NewStore(slotCapacity int) *Store {
	return &Store{status: StatusIdle, slotCap: slotCapacity}
}

// SetUser replaces the session identity. nil signs the session out.
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.notify()
}

// SetActiveJob starts a new job lifecycle: status becomes uploading, the page
// counters reset to zero, and any previous error is cleared. An empty jobID
// returns the session to idle. This is the sole entry point that begins a new
// lifecycle; calling it while another job is active abandons that job.
func (s *Store) SetActiveJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeJobID = jobID
	s.progress = Progress{}
	s.errMsg = ""
	if jobID == "" {
		s.status = StatusIdle
	} else {
		s.status = StatusUploading
	}
	s.notify()
}

// UpdateJobStatus sets the status unconditionally. Progress and errMsg are
// applied only when non-nil, otherwise the prior values are preserved exactly.
// Progress.Current is clamped to Progress.Total once a total is known.
func (s *Store) UpdateJobStatus(status Status, progress *Progress, errMsg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	if progress != nil {
		p := *progress
		if p.Total > 0 && p.Current > p.Total {
			p.Current = p.Total
		}
		s.progress = p
	}
	if errMsg != nil {
		s.errMsg = *errMsg
	}
	s.notify()
}

// ResetActiveJob forces the session back to idle from any state.
func (s *Store) ResetActiveJob() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeJobID = ""
	s.status = StatusIdle
	s.progress = Progress{}
	s.errMsg = ""
	s.notify()
}

// SetGuestResult replaces the ephemeral guest result wholesale.
func (s *Store) SetGuestResult(r *GuestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guestResult = r
	s.notify()
}

// SetUserJobs replaces the authenticated user's job list wholesale; the slot
// count reported in snapshots is derived from its length.
func (s *Store) SetUserJobs(jobs []JobSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userJobs = jobs
	s.notify()
}

// ActiveJobID returns the id of the job currently owning the lifecycle, or ""
// when idle. Pollers compare against it to discard stale responses.
func (s *Store) ActiveJobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeJobID
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer. The channel is buffered; an observer that
// falls behind misses intermediate snapshots rather than blocking writers.
func (s *Store) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
	return ch
}

// Unsubscribe removes an observer registered with Subscribe and closes its
// channel.
func (s *Store) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.subs {
		if c == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(c)
			return
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		User:         s.user,
		ActiveJobID:  s.activeJobID,
		Status:       s.status,
		Progress:     s.progress,
		Error:        s.errMsg,
		GuestResult:  s.guestResult,
		SlotsUsed:    len(s.userJobs),
		SlotCapacity: s.slotCap,
	}
	if s.guestResult != nil {
		snap.PageControls = results.PageControls(s.guestResult.TotalPages)
	}
	if s.userJobs != nil {
		snap.UserJobs = append([]JobSummary(nil), s.userJobs...)
	}
	return snap
}

func (s *Store) notify() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
