// Package jobs tracks asynchronous analysis jobs. Records expire after a TTL;
// they describe work in progress and are not an analysis history.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rt0111/onayformukontrol/internal/models"
)

// ErrNotFound is returned for unknown or expired jobs
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle state of a job
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Done reports whether the job reached a final state
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is one asynchronous analysis
type Job struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Result    *models.AnalysisResult `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// New returns a queued job with a fresh id
func New(name string, now time.Time) *Job {
	return &Job{
		ID:        uuid.New(),
		Name:      name,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists job records. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	job     Job
	expires time.Time
}

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates an in-memory store; ttl <= 0 keeps jobs forever
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[uuid.UUID]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{job: *job}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.jobs[job.ID] = entry

	// Drop expired entries while holding the lock
	for id, e := range s.jobs {
		if !e.expires.IsZero() && s.now().After(e.expires) {
			delete(s.jobs, id)
		}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		return nil, ErrNotFound
	}
	job := e.job
	return &job, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
