package catalog

import (
	"context"
	"time"
)

// JobStore persists crawl job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job CrawlJob) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	GetJob(ctx context.Context, jobID string) (CrawlJob, error)
}

// AnnouncementStore persists catalog records.
type AnnouncementStore interface {
	// Upsert inserts or updates by (SourceID, ExternalID) and reports
	// whether a new row was created.
	Upsert(ctx context.Context, a Announcement) (id string, created bool, err error)
	Get(ctx context.Context, id string) (Announcement, error)
	// ListUngrouped returns soft-delete-free announcements without a
	// group whose ID sorts after afterID, in ID order, capped at limit.
	// IDs are time-ordered, so paging by ID walks the catalog oldest
	// first and never revisits a row within one sweep.
	ListUngrouped(ctx context.Context, afterID string, limit int) ([]Announcement, error)
	// FindByFingerprint returns announcements matching the normalized pair.
	FindByFingerprint(ctx context.Context, normalizedName, normalizedOrg string) ([]Announcement, error)
	ListByGroup(ctx context.Context, groupID string) ([]Announcement, error)
	SetGroup(ctx context.Context, announcementID, groupID string) error
	SetCanonical(ctx context.Context, announcementID string, canonical bool) error
}

// AttachmentStore persists attachment rows.
type AttachmentStore interface {
	Save(ctx context.Context, att Attachment) (string, error)
	Get(ctx context.Context, id string) (Attachment, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]Attachment, error)
	UpdateParseState(ctx context.Context, id string, state ParseState, content, parseErr string) error
	// CleanupDuplicates keeps the most recently created attachment per
	// (announcement, source URL) pair and returns how many rows it removed.
	CleanupDuplicates(ctx context.Context, announcementID string) (int, error)
}

// GroupStore persists dedup clusters.
type GroupStore interface {
	CreateGroup(ctx context.Context, g ProjectGroup) (string, error)
	GetGroup(ctx context.Context, id string) (ProjectGroup, error)
	SetReviewStatus(ctx context.Context, id string, status GroupReviewStatus) error
}

// ChunkStore persists search index chunks.
type ChunkStore interface {
	// ReplaceChunks deletes all chunks for (sourceType, sourceID) and
	// inserts the provided set in one shot.
	ReplaceChunks(ctx context.Context, sourceType, sourceID string, chunks []Chunk) error
	ListAll(ctx context.Context) ([]Chunk, error)
}

// BlobStore reads and writes attachment bytes and hands out download
// links. GetObject exists so stored attachments can be re-parsed
// without re-fetching the origin.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
	// SignedURL returns a time-limited download link for a stored object.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Downloader retrieves binary attachment content from its origin.
type Downloader interface {
	Download(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Fetcher resolves a URL to rendered HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (FetchResult, error)
}

// Analyzer is the external document-understanding collaborator.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, docType AttachmentType, content []byte, mimeType string) (AnalysisResult, error)
	ExtractFields(ctx context.Context, fullText string) (*StructuredFields, error)
}

// Embedder turns text into a vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TaskQueue provides enqueue/dequeue semantics for async work items.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// Publisher pushes pipeline events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}
