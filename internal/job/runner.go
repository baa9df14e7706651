// Package job executes crawl jobs end to end: listing fetch, detail
// resolution, selective attachment storage, document analysis, and
// catalog persistence.
package job

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/analysis"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/attach"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/dedup"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/extract"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress"
)

const summaryMaxRunes = 500

// AttachmentAnalyzer parses stored attachment bytes and records the
// outcome on the attachment row.
type AttachmentAnalyzer interface {
	Analyze(ctx context.Context, att catalog.Attachment, data []byte) error
}

// Config tunes the crawl runner.
type Config struct {
	// PoliteDelay is the pause between detail page fetches.
	PoliteDelay time.Duration
	// ItemTimeout bounds the work for one listing row.
	ItemTimeout time.Duration
	// MaxItems caps how many listing rows one job processes. Zero means
	// no cap.
	MaxItems int
	// SizeCeiling caps stored attachment bytes.
	SizeCeiling int64
}

func (c Config) withDefaults() Config {
	if c.PoliteDelay <= 0 {
		c.PoliteDelay = 2 * time.Second
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 90 * time.Second
	}
	if c.SizeCeiling <= 0 {
		c.SizeCeiling = attach.DefaultSizeCeiling
	}
	return c
}

// Runner drives one crawl job through the full pipeline.
type Runner struct {
	cfg           Config
	fetcher       catalog.Fetcher
	downloader    catalog.Downloader
	jobs          catalog.JobStore
	announcements catalog.AnnouncementStore
	attachments   catalog.AttachmentStore
	blobs         catalog.BlobStore
	analyzer      AttachmentAnalyzer
	extractor     catalog.Analyzer
	tasks         catalog.TaskQueue
	hasher        catalog.Hasher
	clock         catalog.Clock
	emitter       progress.Emitter
	logger        *zap.Logger
}

// Deps bundles the runner's collaborators.
type Deps struct {
	Fetcher       catalog.Fetcher
	Downloader    catalog.Downloader
	Jobs          catalog.JobStore
	Announcements catalog.AnnouncementStore
	Attachments   catalog.AttachmentStore
	Blobs         catalog.BlobStore
	Analyzer      AttachmentAnalyzer
	Extractor     catalog.Analyzer
	Tasks         catalog.TaskQueue
	Hasher        catalog.Hasher
	Clock         catalog.Clock
	Emitter       progress.Emitter
	Logger        *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(cfg Config, deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:           cfg.withDefaults(),
		fetcher:       deps.Fetcher,
		downloader:    deps.Downloader,
		jobs:          deps.Jobs,
		announcements: deps.Announcements,
		attachments:   deps.Attachments,
		blobs:         deps.Blobs,
		analyzer:      deps.Analyzer,
		extractor:     deps.Extractor,
		tasks:         deps.Tasks,
		hasher:        deps.Hasher,
		clock:         deps.Clock,
		emitter:       deps.Emitter,
		logger:        logger,
	}
}

// Run executes the crawl job for one source. Listing failure fails the
// job; individual item failures are logged and skipped so one broken
// announcement never aborts a crawl.
func (r *Runner) Run(ctx context.Context, job catalog.CrawlJob, source catalog.Source) error {
	start := r.now()
	logger := r.logger.With(zap.String("job_id", job.ID), zap.String("source_id", source.ID))

	var counters catalog.JobCounters
	if err := r.jobs.UpdateJobStatus(ctx, job.ID, catalog.JobStatusRunning, "", counters); err != nil {
		return err
	}
	r.emit(progress.Event{JobID: job.ID, SourceID: source.ID, TS: r.now(), Stage: progress.StageJobStart})

	listings, listingURL, err := r.fetchListings(ctx, job, source)
	if err != nil {
		logger.Error("listing fetch failed", zap.Error(err))
		r.finish(ctx, job, source, catalog.JobStatusFailed, err.Error(), counters, start)
		return err
	}
	counters.ProjectsFound = len(listings)
	logger.Info("listing extracted", zap.Int("items", len(listings)))

	if r.cfg.MaxItems > 0 && len(listings) > r.cfg.MaxItems {
		listings = listings[:r.cfg.MaxItems]
	}

	for i, listing := range listings {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.PoliteDelay); err != nil {
				r.finish(ctx, job, source, catalog.JobStatusFailed, err.Error(), counters, start)
				return err
			}
		}
		created, files, err := r.processItem(ctx, job, source, listing, listingURL)
		counters.FilesProcessed += files
		if err != nil {
			logger.Warn("item skipped",
				zap.String("title", listing.Title),
				zap.String("link", listing.DetailLink),
				zap.Error(err))
			r.emit(progress.Event{
				JobID: job.ID, SourceID: source.ID, TS: r.now(),
				Stage: progress.StageItemError, URL: listing.DetailLink, Note: err.Error(),
			})
			continue
		}
		if created {
			counters.ProjectsNew++
		} else {
			counters.ProjectsUpdated++
		}
		r.emit(progress.Event{
			JobID: job.ID, SourceID: source.ID, TS: r.now(),
			Stage: progress.StageItemDone, URL: listing.DetailLink, Items: 1,
		})
	}

	r.finish(ctx, job, source, catalog.JobStatusCompleted, "", counters, start)
	logger.Info("crawl job completed",
		zap.Int("found", counters.ProjectsFound),
		zap.Int("new", counters.ProjectsNew),
		zap.Int("updated", counters.ProjectsUpdated),
		zap.Int("files", counters.FilesProcessed))
	return nil
}

func (r *Runner) fetchListings(ctx context.Context, job catalog.CrawlJob, source catalog.Source) ([]catalog.Listing, string, error) {
	opts := catalog.FetchOptions{
		WaitSelector: source.WaitSelector,
		ForceBrowser: source.Type == catalog.SourceTypeBrowser,
	}
	res, err := r.fetcher.Fetch(ctx, source.URL, opts)
	if err != nil {
		return nil, "", err
	}
	r.emitPage(job, source, res)

	listings := extract.Listings(res.HTML)
	if len(listings) == 0 {
		return nil, "", fmt.Errorf("no announcements found at %s", source.URL)
	}
	return listings, res.FinalURL, nil
}

// processItem resolves one listing row. It returns whether the
// announcement row was newly created and how many files were stored.
func (r *Runner) processItem(parent context.Context, job catalog.CrawlJob, source catalog.Source, listing catalog.Listing, baseURL string) (bool, int, error) {
	ctx, cancel := context.WithTimeout(parent, r.cfg.ItemTimeout)
	defer cancel()

	detailURL, err := resolveLink(baseURL, listing.DetailLink)
	if err != nil {
		return false, 0, &catalog.DetailFetchError{Link: listing.DetailLink, Err: err}
	}

	res, err := r.fetcher.Fetch(ctx, detailURL, catalog.FetchOptions{WaitSelector: source.WaitSelector})
	if err != nil {
		return false, 0, &catalog.DetailFetchError{Link: detailURL, Err: err}
	}
	r.emitPage(job, source, res)

	detail := extract.Detail(res.HTML, res.FinalURL)

	ann := catalog.Announcement{
		SourceID:       source.ID,
		ExternalID:     detailURL,
		Name:           listing.Title,
		Organization:   listing.Organization,
		Summary:        truncateRunes(detail.FullText, summaryMaxRunes),
		DetailURL:      detailURL,
		NormalizedName: dedup.NormalizeName(listing.Title),
		NormalizedOrg:  dedup.NormalizeOrg(listing.Organization),
		Status:         catalog.AnnouncementActive,
	}
	annID, created, err := r.announcements.Upsert(ctx, ann)
	if err != nil {
		return false, 0, err
	}

	files, atts := r.processAttachments(ctx, job, source, annID, detail.Attachments)

	if _, err := r.attachments.CleanupDuplicates(ctx, annID); err != nil {
		r.logger.Warn("attachment cleanup failed", zap.String("announcement_id", annID), zap.Error(err))
	}

	fullText := analysis.ComposeAnnouncementText(detail.FullText, atts)
	r.applyStructuredFields(ctx, annID, ann, fullText)

	if r.tasks != nil && strings.TrimSpace(fullText) != "" {
		if err := r.tasks.Enqueue(ctx, catalog.Task{
			Kind:       catalog.TaskIndex,
			SourceType: "announcement",
			SourceID:   annID,
			Text:       fullText,
		}); err != nil {
			r.logger.Warn("index enqueue failed", zap.String("announcement_id", annID), zap.Error(err))
		}
	}
	return created, files, nil
}

// processAttachments saves every discovered attachment row, stores and
// analyzes the ones selected for parsing, and returns the stored file
// count plus the final attachment rows.
func (r *Runner) processAttachments(ctx context.Context, job catalog.CrawlJob, source catalog.Source, annID string, links []catalog.AttachmentLink) (int, []catalog.Attachment) {
	stored := 0
	for _, link := range links {
		decision := attach.Decide(link.FileName, link.MimeType, link.SizeBytes, r.cfg.SizeCeiling)
		att := catalog.Attachment{
			AnnouncementID: annID,
			FileName:       link.FileName,
			Type:           decision.Type,
			MimeType:       link.MimeType,
			SizeBytes:      link.SizeBytes,
			SourceURL:      link.URL,
			ShouldParse:    decision.ShouldParse,
			ParseState:     catalog.ParseStateUploaded,
		}
		attID, err := r.attachments.Save(ctx, att)
		if err != nil {
			r.logger.Warn("attachment save failed", zap.String("file", link.FileName), zap.Error(err))
			continue
		}
		att.ID = attID
		if !decision.ShouldParse {
			r.logger.Debug("attachment not selected for storage",
				zap.String("file", link.FileName),
				zap.String("reason", decision.Reason))
			continue
		}
		if r.storeAndAnalyze(ctx, job, source, &att) {
			stored++
		}
	}

	atts, err := r.attachments.ListByAnnouncement(ctx, annID)
	if err != nil {
		r.logger.Warn("attachment list failed", zap.String("announcement_id", annID), zap.Error(err))
		return stored, nil
	}
	return stored, atts
}

// storeAndAnalyze downloads one parseable attachment, uploads it to
// blob storage, and runs document analysis. Failures degrade: a failed
// download leaves the row with only the origin URL, a failed analysis
// is recorded on the row by the orchestrator.
func (r *Runner) storeAndAnalyze(ctx context.Context, job catalog.CrawlJob, source catalog.Source, att *catalog.Attachment) bool {
	data, contentType, err := r.downloader.Download(ctx, att.SourceURL)
	if err != nil {
		r.logger.Warn("attachment download failed", zap.String("url", att.SourceURL), zap.Error(err))
		return false
	}
	if r.cfg.SizeCeiling > 0 && int64(len(data)) > r.cfg.SizeCeiling {
		r.logger.Info("attachment exceeds size ceiling", zap.String("url", att.SourceURL), zap.Int("bytes", len(data)))
		return false
	}
	if att.MimeType == "" {
		att.MimeType = contentType
	}
	att.SizeBytes = int64(len(data))
	if r.hasher != nil {
		if sum, err := r.hasher.Hash(data); err == nil {
			att.ContentHash = sum
		}
	}

	path := fmt.Sprintf("attachments/%s/%s", att.AnnouncementID, att.FileName)
	if _, err := r.blobs.PutObject(ctx, path, att.MimeType, data); err != nil {
		r.logger.Warn("attachment upload failed", zap.String("url", att.SourceURL), zap.Error(err))
		return false
	}
	att.StoragePath = path
	if _, err := r.attachments.Save(ctx, *att); err != nil {
		r.logger.Warn("attachment update failed", zap.String("id", att.ID), zap.Error(err))
		return false
	}
	r.emit(progress.Event{
		JobID: job.ID, SourceID: source.ID, TS: r.now(),
		Stage: progress.StageFileStored, URL: att.SourceURL, Bytes: att.SizeBytes,
	})

	if r.analyzer != nil {
		if err := r.analyzer.Analyze(ctx, *att, data); err != nil {
			r.logger.Warn("attachment analysis failed", zap.String("id", att.ID), zap.Error(err))
		} else {
			r.emit(progress.Event{
				JobID: job.ID, SourceID: source.ID, TS: r.now(),
				Stage: progress.StageAnalysisDone, URL: att.SourceURL,
			})
		}
	}
	return true
}

// applyStructuredFields runs announcement-level extraction and persists
// whatever fields came back. Extraction failure is non-fatal: the
// announcement keeps its listing-derived fields.
func (r *Runner) applyStructuredFields(ctx context.Context, annID string, ann catalog.Announcement, fullText string) {
	if r.extractor == nil || strings.TrimSpace(fullText) == "" {
		return
	}
	fields, err := r.extractor.ExtractFields(ctx, fullText)
	if err != nil || fields == nil {
		r.logger.Warn("field extraction failed", zap.String("announcement_id", annID), zap.Error(err))
		return
	}
	if fields.Description != "" {
		ann.Summary = truncateRunes(fields.Description, summaryMaxRunes)
	}
	if fields.Category != "" {
		ann.Category = fields.Category
	}
	if fields.Region != "" {
		ann.Region = fields.Region
	}
	if _, _, err := r.announcements.Upsert(ctx, ann); err != nil {
		r.logger.Warn("structured field persist failed", zap.String("announcement_id", annID), zap.Error(err))
	}
}

func (r *Runner) finish(ctx context.Context, job catalog.CrawlJob, source catalog.Source, status catalog.JobStatus, errText string, counters catalog.JobCounters, start time.Time) {
	if err := r.jobs.UpdateJobStatus(ctx, job.ID, status, errText, counters); err != nil {
		r.logger.Error("job status update failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	stage := progress.StageJobDone
	if status == catalog.JobStatusFailed {
		stage = progress.StageJobError
	}
	r.emit(progress.Event{
		JobID: job.ID, SourceID: source.ID, TS: r.now(),
		Stage: stage, Dur: r.now().Sub(start), Note: errText,
	})
}

func (r *Runner) emitPage(job catalog.CrawlJob, source catalog.Source, res catalog.FetchResult) {
	mode := progress.ModePlain
	if res.UsedBrowser {
		mode = progress.ModeBrowser
	}
	r.emit(progress.Event{
		JobID: job.ID, SourceID: source.ID, TS: r.now(),
		Stage:       progress.StagePageFetched,
		URL:         res.FinalURL,
		Bytes:       int64(len(res.HTML)),
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Mode:        mode,
		Dur:         res.Duration,
	})
}

func (r *Runner) emit(evt progress.Event) {
	if r.emitter != nil {
		r.emitter.Emit(evt)
	}
}

func (r *Runner) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resolveLink(base, link string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
