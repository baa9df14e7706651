// Package api exposes the HTTP interface for the catalog service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/analysis"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/metrics"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/scheduler"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/search"
)

// Crawls triggers on-demand crawl jobs and lists the configured sources.
type Crawls interface {
	Trigger(ctx context.Context, sourceID string) (string, error)
	// TriggerAll starts one job per active source.
	TriggerAll(ctx context.Context) ([]string, error)
	// ProcessJob runs a pending job that was created but not started.
	ProcessJob(ctx context.Context, jobID string) error
	Sources() []catalog.Source
}

// Searcher serves hybrid queries over the chunk index.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, opts search.Options) ([]catalog.SearchResult, error)
}

// Reanalyzer requests a fresh parse of one attachment.
type Reanalyzer interface {
	RequestReanalysis(ctx context.Context, attachmentID string, force bool) error
}

// Config tunes the HTTP surface.
type Config struct {
	AuthEnabled    bool
	APIKey         string
	RequestTimeout time.Duration
	DownloadTTL    time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.DownloadTTL <= 0 {
		c.DownloadTTL = 15 * time.Minute
	}
	return c
}

// Server wires HTTP handlers to the pipeline collaborators.
type Server struct {
	router      chi.Router
	crawls      Crawls
	jobs        catalog.JobStore
	attachments catalog.AttachmentStore
	blobs       catalog.BlobStore
	searcher    Searcher
	reanalyzer  Reanalyzer
	logger      *zap.Logger
	cfg         Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	crawls Crawls,
	jobs catalog.JobStore,
	attachments catalog.AttachmentStore,
	blobs catalog.BlobStore,
	searcher Searcher,
	reanalyzer Reanalyzer,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		crawls:      crawls,
		jobs:        jobs,
		attachments: attachments,
		blobs:       blobs,
		searcher:    searcher,
		reanalyzer:  reanalyzer,
		logger:      logger,
		cfg:         cfg.withDefaults(),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(s.cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(apiKeyMiddleware(s.cfg.APIKey))
		}
		r.Get("/sources", s.listSources)
		r.Post("/crawl", s.triggerCrawl)
		r.Get("/jobs/{job_id}", s.getJob)
		r.Post("/jobs/{job_id}/process", s.processJob)
		r.Get("/search", s.searchChunks)
		r.Route("/attachments/{attachment_id}", func(r chi.Router) {
			r.Post("/reanalyze", s.reanalyzeAttachment)
			r.Get("/download", s.downloadAttachment)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"sources": s.crawls.Sources()})
}

type triggerCrawlRequest struct {
	SourceID string `json:"source_id"`
}

func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	var req triggerCrawlRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	// No source_id means crawl everything: one job per active source.
	if req.SourceID == "" {
		jobIDs, err := s.crawls.TriggerAll(r.Context())
		if err != nil {
			s.logger.Error("batch crawl trigger failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to trigger crawls")
			return
		}
		if jobIDs == nil {
			jobIDs = []string{}
		}
		writeJSON(s.logger, w, http.StatusAccepted, map[string]any{"job_ids": jobIDs})
		return
	}
	jobID, err := s.crawls.Trigger(r.Context(), req.SourceID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) processJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	err := s.crawls.ProcessJob(r.Context(), jobID)
	switch {
	case err == nil:
		writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
			"job_id": jobID,
			"status": "processing",
		})
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, scheduler.ErrJobNotPending):
		s.writeError(w, http.StatusConflict, "job already started")
	default:
		s.logger.Error("process job failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to process job")
	}
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) searchChunks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	opts := search.Options{
		SourceType: r.URL.Query().Get("source_type"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.MatchCount = limit
	}
	results, err := s.searcher.HybridSearch(r.Context(), query, opts)
	if err != nil {
		s.logger.Error("hybrid search failed", zap.String("query", query), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

type reanalyzeRequest struct {
	Force bool `json:"force"`
}

func (s *Server) reanalyzeAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID := chi.URLParam(r, "attachment_id")

	var req reanalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	err := s.reanalyzer.RequestReanalysis(r.Context(), attachmentID, req.Force)
	switch {
	case err == nil:
		writeJSON(s.logger, w, http.StatusAccepted, map[string]string{
			"attachment_id": attachmentID,
			"status":        "queued",
		})
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "attachment not found")
	case errors.Is(err, analysis.ErrAnalyzing):
		s.writeError(w, http.StatusConflict, "analysis already in progress")
	case errors.Is(err, analysis.ErrAlreadyAnalyzed):
		s.writeError(w, http.StatusConflict, "already analyzed; pass force to re-run")
	case errors.Is(err, analysis.ErrNotParseable):
		s.writeError(w, http.StatusUnprocessableEntity, "attachment is not parseable")
	default:
		s.logger.Error("reanalysis request failed",
			zap.String("attachment_id", attachmentID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "reanalysis request failed")
	}
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID := chi.URLParam(r, "attachment_id")
	att, err := s.attachments.Get(r.Context(), attachmentID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load attachment")
		return
	}
	if att.StoragePath == "" {
		// Not stored locally (excluded type or over the size ceiling);
		// hand back the portal's own URL when we have one.
		if att.SourceURL != "" {
			writeJSON(s.logger, w, http.StatusOK, map[string]any{
				"attachment_id": attachmentID,
				"file_name":     att.FileName,
				"url":           att.SourceURL,
				"stored":        false,
			})
			return
		}
		s.writeError(w, http.StatusConflict, "attachment bytes were not stored")
		return
	}
	url, err := s.blobs.SignedURL(r.Context(), att.StoragePath, s.cfg.DownloadTTL)
	if err != nil {
		s.logger.Error("signed url failed",
			zap.String("attachment_id", attachmentID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to sign download link")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"attachment_id": attachmentID,
		"file_name":     att.FileName,
		"url":           url,
		"stored":        true,
		"expires_in":    int(s.cfg.DownloadTTL.Seconds()),
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

type requestIDKey struct{}

// RequestID returns the request id stamped by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.String("request_id", RequestID(r.Context())),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
