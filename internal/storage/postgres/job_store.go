package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// JobStore implements catalog.JobStore over Postgres.
type JobStore struct {
	pool  Querier
	clock catalog.Clock
}

// NewJobStore constructs a JobStore on an existing pool.
func NewJobStore(pool Querier, clock catalog.Clock) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool, clock: clock}, nil
}

func (s *JobStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

// CreateJob inserts a job row.
func (s *JobStore) CreateJob(ctx context.Context, job catalog.CrawlJob) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := `
INSERT INTO crawl_jobs (
	id, source_id, status,
	projects_found, projects_new, projects_updated, files_processed,
	error_text, submitted_at, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.SourceID,
		job.Status,
		job.Counters.ProjectsFound,
		job.Counters.ProjectsNew,
		job.Counters.ProjectsUpdated,
		job.Counters.FilesProcessed,
		job.ErrorText,
		job.Submitted,
		job.Started,
		job.Finished,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus advances a job's lifecycle state and counters. The
// first transition to running stamps started_at; terminal states stamp
// finished_at.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status catalog.JobStatus, errText string, counters catalog.JobCounters) error {
	query := `
UPDATE crawl_jobs SET
	status = $2,
	error_text = $3,
	projects_found = $4,
	projects_new = $5,
	projects_updated = $6,
	files_processed = $7,
	started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN $8 ELSE started_at END,
	finished_at = CASE WHEN $2 IN ('completed', 'failed') THEN $8 ELSE finished_at END
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		status,
		errText,
		counters.ProjectsFound,
		counters.ProjectsNew,
		counters.ProjectsUpdated,
		counters.FilesProcessed,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// GetJob loads one job row.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (catalog.CrawlJob, error) {
	query := `
SELECT id, source_id, status,
	projects_found, projects_new, projects_updated, files_processed,
	error_text, submitted_at, started_at, finished_at
FROM crawl_jobs WHERE id = $1`
	var job catalog.CrawlJob
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&job.SourceID,
		&job.Status,
		&job.Counters.ProjectsFound,
		&job.Counters.ProjectsNew,
		&job.Counters.ProjectsUpdated,
		&job.Counters.FilesProcessed,
		&job.ErrorText,
		&job.Submitted,
		&job.Started,
		&job.Finished,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.CrawlJob{}, catalog.ErrNotFound
		}
		return catalog.CrawlJob{}, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}
