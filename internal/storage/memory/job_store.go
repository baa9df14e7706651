package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// JobStore implements catalog.JobStore over process memory.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]catalog.CrawlJob
	clock catalog.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(clock catalog.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]catalog.CrawlJob),
		clock: clock,
	}
}

// CreateJob stores a new job in pending status.
func (s *JobStore) CreateJob(_ context.Context, job catalog.CrawlJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	if job.Status == "" {
		job.Status = catalog.JobStatusPending
	}
	if job.Submitted.IsZero() {
		job.Submitted = now(s.clock)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates status and counters, stamping start/finish times.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status catalog.JobStatus,
	errText string,
	counters catalog.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	ts := now(s.clock)
	if status == catalog.JobStatusRunning && job.Started == nil {
		started := ts
		job.Started = &started
	}
	if status == catalog.JobStatusCompleted || status == catalog.JobStatusFailed {
		finished := ts
		job.Finished = &finished
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (catalog.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return catalog.CrawlJob{}, ErrNotFound
	}
	return job, nil
}
