package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress"
)

// PrometheusSink exports pipeline progress metrics via Prometheus. It owns all
// collectors for jobs started/completed/running and per-source page, item,
// file, and analysis counters.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobRuntime    *prometheus.HistogramVec

	pageFetches   *prometheus.CounterVec
	pageBytes     *prometheus.CounterVec
	pageDuration  *prometheus.HistogramVec
	itemsDone     *prometheus.CounterVec
	filesStored   *prometheus.CounterVec
	analysesDone  *prometheus.CounterVec

	tracker *jobTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_jobs_started_total",
			Help: "Total crawl jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_jobs_completed_total",
			Help: "Total crawl jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_jobs_running",
			Help: "Current number of running crawl jobs.",
		}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_job_runtime_seconds",
			Help:    "Wall time per completed crawl job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_page_fetches_total",
			Help: "Page fetch completions partitioned by source, status class, and fetch mode.",
		}, []string{"source", "status_class", "mode"}),
		pageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_page_bytes_total",
			Help: "HTML bytes downloaded per source.",
		}, []string{"source"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_page_fetch_duration_seconds",
			Help:    "Page fetch duration partitioned by source and fetch mode.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source", "mode"}),
		itemsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_items_processed_total",
			Help: "Announcements processed partitioned by source and result.",
		}, []string{"source", "result"}),
		filesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_files_stored_total",
			Help: "Attachment files stored per source.",
		}, []string{"source"}),
		analysesDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_analyses_total",
			Help: "Document analyses partitioned by source.",
		}, []string{"source"}),
		tracker: newJobTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRuntime,
		s.pageFetches,
		s.pageBytes,
		s.pageDuration,
		s.itemsDone,
		s.filesStored,
		s.analysesDone,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageJobStart, progress.StageJobDone, progress.StageJobError:
		s.handleJobEvent(evt)
	case progress.StagePageFetched:
		s.handlePageEvent(evt)
	case progress.StageItemDone:
		s.itemsDone.WithLabelValues(source(evt), "success").Inc()
	case progress.StageItemError:
		s.itemsDone.WithLabelValues(source(evt), "error").Inc()
	case progress.StageFileStored:
		s.filesStored.WithLabelValues(source(evt)).Inc()
	case progress.StageAnalysisDone:
		s.analysesDone.WithLabelValues(source(evt)).Inc()
	}
}

func (s *PrometheusSink) handleJobEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageJobStart:
		s.jobsStarted.Inc()
		if s.tracker.start(evt.JobID) {
			s.jobsRunning.Inc()
		}
	case progress.StageJobDone:
		s.jobsCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
	case progress.StageJobError:
		s.jobsCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt, "error")
	}
	if evt.Stage != progress.StageJobStart && s.tracker.complete(evt.JobID) {
		s.jobsRunning.Dec()
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.jobRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handlePageEvent(evt progress.Event) {
	src := source(evt)
	statusClass := string(evt.StatusClass)
	if statusClass == "" {
		statusClass = string(progress.StatusOther)
	}
	mode := string(evt.Mode)
	if mode == "" {
		mode = string(progress.ModePlain)
	}
	s.pageFetches.WithLabelValues(src, statusClass, mode).Inc()
	if evt.Bytes > 0 {
		s.pageBytes.WithLabelValues(src).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.pageDuration.WithLabelValues(src, mode).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func source(evt progress.Event) string {
	if evt.SourceID == "" {
		return "unknown"
	}
	return evt.SourceID
}

type jobTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newJobTracker() *jobTracker {
	return &jobTracker{running: make(map[string]struct{})}
}

func (t *jobTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *jobTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
