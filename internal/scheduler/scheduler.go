// Package scheduler triggers periodic crawls for every active source
// and runs deduplication sweeps after each cycle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/dedup"
)

// ErrJobNotPending is returned when processing is requested for a job
// that already started or finished.
var ErrJobNotPending = errors.New("job is not pending")

// JobRunner executes one crawl job.
type JobRunner interface {
	Run(ctx context.Context, job catalog.CrawlJob, source catalog.Source) error
}

// Grouper clusters ungrouped announcements in batches.
type Grouper interface {
	GroupBatch(ctx context.Context) (dedup.BatchResult, error)
}

// Config tunes the scheduler.
type Config struct {
	// Interval between full crawl cycles.
	Interval time.Duration
	// MaxConcurrent caps sources crawled in parallel.
	MaxConcurrent int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 6 * time.Hour
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	return c
}

// Scheduler owns the crawl cadence over a fixed source registry.
type Scheduler struct {
	cfg     Config
	jobs    catalog.JobStore
	runner  JobRunner
	grouper Grouper
	idGen   catalog.IDGenerator
	clock   catalog.Clock
	logger  *zap.Logger

	mu      sync.RWMutex
	sources []catalog.Source
}

// New constructs a Scheduler.
func New(cfg Config, sources []catalog.Source, jobs catalog.JobStore, runner JobRunner, grouper Grouper, idGen catalog.IDGenerator, clock catalog.Clock, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg.withDefaults(),
		sources: append([]catalog.Source(nil), sources...),
		jobs:    jobs,
		runner:  runner,
		grouper: grouper,
		idGen:   idGen,
		clock:   clock,
		logger:  logger,
	}
}

// Sources returns the configured source registry.
func (s *Scheduler) Sources() []catalog.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Source(nil), s.sources...)
}

// SourceByID looks up one source.
func (s *Scheduler) SourceByID(id string) (catalog.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.sources {
		if src.ID == id {
			return src, true
		}
	}
	return catalog.Source{}, false
}

// markCrawled stamps the source's last-crawled time once a run finishes.
func (s *Scheduler) markCrawled(sourceID string) {
	ts := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].ID == sourceID {
			s.sources[i].LastCrawled = &ts
			return
		}
	}
}

// Start blocks, running one crawl cycle immediately and then one per
// interval until the context finishes.
func (s *Scheduler) Start(ctx context.Context) {
	s.RunCycle(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle crawls every active source with bounded parallelism, then
// sweeps deduplication until no ungrouped announcements remain.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := s.now()
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.MaxConcurrent)

	launched := 0
	for _, source := range s.Sources() {
		if !source.IsActive {
			continue
		}
		job, err := s.createJob(ctx, source)
		if err != nil {
			s.logger.Error("job creation failed", zap.String("source_id", source.ID), zap.Error(err))
			continue
		}
		launched++
		wg.Add(1)
		go func(job catalog.CrawlJob, source catalog.Source) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			if err := s.runner.Run(ctx, job, source); err != nil {
				s.logger.Warn("crawl job failed",
					zap.String("job_id", job.ID),
					zap.String("source_id", source.ID),
					zap.Error(err))
			}
			s.markCrawled(source.ID)
		}(job, source)
	}
	wg.Wait()

	s.sweepDedup(ctx)
	s.logger.Info("crawl cycle finished",
		zap.Int("sources", launched),
		zap.Duration("took", s.now().Sub(start)))
}

// Trigger creates and asynchronously runs one crawl job for the source.
// Used by the HTTP API for on-demand crawls.
func (s *Scheduler) Trigger(ctx context.Context, sourceID string) (string, error) {
	source, ok := s.SourceByID(sourceID)
	if !ok {
		return "", fmt.Errorf("unknown source %q", sourceID)
	}
	job, err := s.createJob(ctx, source)
	if err != nil {
		return "", err
	}
	go s.runDetached(ctx, job, source)
	return job.ID, nil
}

// TriggerAll creates one crawl job per active source and runs each
// asynchronously. Returns the created job IDs.
func (s *Scheduler) TriggerAll(ctx context.Context) ([]string, error) {
	var ids []string
	for _, source := range s.Sources() {
		if !source.IsActive {
			continue
		}
		job, err := s.createJob(ctx, source)
		if err != nil {
			return ids, fmt.Errorf("create job for %s: %w", source.ID, err)
		}
		go s.runDetached(ctx, job, source)
		ids = append(ids, job.ID)
	}
	return ids, nil
}

// ProcessJob asynchronously runs a previously created job. Only pending
// jobs are eligible; anything already started returns ErrJobNotPending.
func (s *Scheduler) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != catalog.JobStatusPending {
		return fmt.Errorf("job %s has status %s: %w", jobID, job.Status, ErrJobNotPending)
	}
	source, ok := s.SourceByID(job.SourceID)
	if !ok {
		return fmt.Errorf("job %s references unknown source %q", jobID, job.SourceID)
	}
	go s.runDetached(ctx, job, source)
	return nil
}

// runDetached runs one job outside the caller's cancellation so the
// crawl survives the HTTP response.
func (s *Scheduler) runDetached(ctx context.Context, job catalog.CrawlJob, source catalog.Source) {
	runCtx := context.WithoutCancel(ctx)
	if err := s.runner.Run(runCtx, job, source); err != nil {
		s.logger.Warn("triggered crawl failed",
			zap.String("job_id", job.ID),
			zap.String("source_id", source.ID),
			zap.Error(err))
	}
	s.markCrawled(source.ID)
}

func (s *Scheduler) createJob(ctx context.Context, source catalog.Source) (catalog.CrawlJob, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return catalog.CrawlJob{}, err
	}
	job := catalog.CrawlJob{
		ID:        id,
		SourceID:  source.ID,
		Status:    catalog.JobStatusPending,
		Submitted: s.now(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return catalog.CrawlJob{}, err
	}
	return job, nil
}

func (s *Scheduler) sweepDedup(ctx context.Context) {
	if s.grouper == nil {
		return
	}
	for {
		res, err := s.grouper.GroupBatch(ctx)
		if err != nil {
			s.logger.Error("dedup sweep failed", zap.Error(err))
			return
		}
		if res.Processed == 0 {
			return
		}
		s.logger.Info("dedup batch grouped",
			zap.Int("processed", res.Processed),
			zap.Int("groups_created", res.GroupsCreated),
			zap.Int("grouped", res.ProjectsGrouped))
	}
}

func (s *Scheduler) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}
