package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// Lifecycle guard errors surfaced to API callers.
var (
	ErrAnalyzing       = errors.New("attachment analysis already in progress")
	ErrAlreadyAnalyzed = errors.New("attachment already analyzed")
	ErrNotParseable    = errors.New("attachment was not selected for parsing")
	ErrNoContent       = errors.New("attachment content unavailable")
)

// Orchestrator runs document analysis while holding the parse state
// machine: uploaded -> analyzing -> analyzed | failed, with
// failed -> analyzing permitted and analyzed re-entry gated on force.
type Orchestrator struct {
	attachments catalog.AttachmentStore
	blobs       catalog.BlobStore
	downloader  catalog.Downloader
	analyzer    catalog.Analyzer
	tasks       catalog.TaskQueue
	retry       catalog.RetryPolicy
	logger      *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(attachments catalog.AttachmentStore, blobs catalog.BlobStore, downloader catalog.Downloader, analyzer catalog.Analyzer, tasks catalog.TaskQueue, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		attachments: attachments,
		blobs:       blobs,
		downloader:  downloader,
		analyzer:    analyzer,
		tasks:       tasks,
		retry:       catalog.NewRetryPolicy(),
		logger:      logger,
	}
}

// Analyze parses freshly stored attachment bytes. Called inline from
// the crawl pipeline right after upload.
func (o *Orchestrator) Analyze(ctx context.Context, att catalog.Attachment, data []byte) error {
	if err := o.guard(att, false); err != nil {
		return err
	}
	return o.run(ctx, att, data)
}

// RequestReanalysis validates the lifecycle guards and enqueues an
// async reanalysis task. The worker does the actual parsing.
func (o *Orchestrator) RequestReanalysis(ctx context.Context, attachmentID string, force bool) error {
	att, err := o.attachments.Get(ctx, attachmentID)
	if err != nil {
		return err
	}
	if err := o.guard(att, force); err != nil {
		return err
	}
	return o.tasks.Enqueue(ctx, catalog.Task{
		Kind:         catalog.TaskReanalyze,
		AttachmentID: attachmentID,
		Force:        force,
	})
}

// Reanalyze re-parses a stored attachment. Bytes come from blob storage
// when a storage path exists, otherwise from the origin URL.
func (o *Orchestrator) Reanalyze(ctx context.Context, attachmentID string, force bool) error {
	att, err := o.attachments.Get(ctx, attachmentID)
	if err != nil {
		return err
	}
	if err := o.guard(att, force); err != nil {
		return err
	}

	data, err := o.loadContent(ctx, att)
	if err != nil {
		return err
	}
	return o.run(ctx, att, data)
}

func (o *Orchestrator) guard(att catalog.Attachment, force bool) error {
	if !att.ShouldParse {
		return ErrNotParseable
	}
	switch att.ParseState {
	case catalog.ParseStateAnalyzing:
		return ErrAnalyzing
	case catalog.ParseStateAnalyzed:
		if !force {
			return ErrAlreadyAnalyzed
		}
	}
	return nil
}

func (o *Orchestrator) loadContent(ctx context.Context, att catalog.Attachment) ([]byte, error) {
	if att.StoragePath != "" {
		data, err := o.blobs.GetObject(ctx, att.StoragePath)
		if err == nil {
			return data, nil
		}
		o.logger.Warn("stored object unreadable, falling back to origin",
			zap.String("attachment_id", att.ID),
			zap.String("storage_path", att.StoragePath),
			zap.Error(err))
	}
	if att.SourceURL == "" || o.downloader == nil {
		return nil, ErrNoContent
	}
	data, _, err := o.downloader.Download(ctx, att.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	return data, nil
}

func (o *Orchestrator) run(ctx context.Context, att catalog.Attachment, data []byte) error {
	if err := o.setState(ctx, att.ID, catalog.ParseStateAnalyzing, "", ""); err != nil {
		return err
	}

	res, err := o.analyzer.AnalyzeDocument(ctx, att.Type, data, att.MimeType)
	if err != nil {
		o.markFailed(ctx, att.ID, err.Error())
		return &catalog.AnalysisError{AttachmentID: att.ID, Err: err}
	}
	if !res.Success {
		o.markFailed(ctx, att.ID, res.Error)
		return &catalog.AnalysisError{AttachmentID: att.ID, Err: errors.New(res.Error)}
	}

	content := composeParsedContent(res)
	if err := o.setState(ctx, att.ID, catalog.ParseStateAnalyzed, content, ""); err != nil {
		return err
	}
	o.logger.Info("attachment analyzed",
		zap.String("attachment_id", att.ID),
		zap.String("type", string(att.Type)),
		zap.Float64("confidence", res.ConfidenceScore))
	return nil
}

func (o *Orchestrator) setState(ctx context.Context, id string, state catalog.ParseState, content, parseErr string) error {
	return o.retry.Do(ctx, func(ctx context.Context) error {
		return o.attachments.UpdateParseState(ctx, id, state, content, parseErr)
	})
}

func (o *Orchestrator) markFailed(ctx context.Context, id, reason string) {
	if err := o.setState(ctx, id, catalog.ParseStateFailed, "", reason); err != nil {
		o.logger.Error("could not record analysis failure",
			zap.String("attachment_id", id), zap.Error(err))
	}
}

// composeParsedContent flattens the service response into the text
// persisted on the attachment row and later chunked for search.
func composeParsedContent(res catalog.AnalysisResult) string {
	var b strings.Builder
	if s := strings.TrimSpace(res.Summary); s != "" {
		b.WriteString(s)
	}
	for _, insight := range res.KeyInsights {
		insight = strings.TrimSpace(insight)
		if insight == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(insight)
	}
	for _, k := range sortedKeys(res.ExtractedData) {
		v := strings.TrimSpace(res.ExtractedData[k])
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
	}
	return b.String()
}

// ComposeAnnouncementText joins the detail page text with every
// analyzed attachment's parsed content for field extraction.
func ComposeAnnouncementText(detailText string, attachments []catalog.Attachment) string {
	parts := make([]string, 0, len(attachments)+1)
	if t := strings.TrimSpace(detailText); t != "" {
		parts = append(parts, t)
	}
	for _, att := range attachments {
		if att.ParseState != catalog.ParseStateAnalyzed {
			continue
		}
		if t := strings.TrimSpace(att.ParsedContent); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
