// Package catalog defines core types shared across subsystems.
package catalog

import "time"

// SourceType selects the fetch path for a crawl source.
type SourceType string

// Fetch path values for a source.
const (
	SourceTypePlain   SourceType = "plain"
	SourceTypeBrowser SourceType = "browser"
)

// Source is one crawl target portal.
type Source struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Type         SourceType `json:"type"`
	IsActive     bool       `json:"is_active"`
	LastCrawled  *time.Time `json:"last_crawled,omitempty"`
	WaitSelector string     `json:"wait_selector,omitempty"`
}

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobCounters tracks per-job crawl statistics.
type JobCounters struct {
	ProjectsFound   int `json:"projects_found"`
	ProjectsNew     int `json:"projects_new"`
	ProjectsUpdated int `json:"projects_updated"`
	FilesProcessed  int `json:"files_processed"`
}

// CrawlJob represents one execution of a Source.
type CrawlJob struct {
	ID        string      `json:"id"`
	SourceID  string      `json:"source_id"`
	Status    JobStatus   `json:"status"`
	Counters  JobCounters `json:"counters"`
	ErrorText string      `json:"error_text,omitempty"`
	Submitted time.Time   `json:"submitted_at"`
	Started   *time.Time  `json:"started_at,omitempty"`
	Finished  *time.Time  `json:"finished_at,omitempty"`
}

// AnnouncementStatus tracks whether a program is still open.
type AnnouncementStatus string

// Announcement status values.
const (
	AnnouncementActive AnnouncementStatus = "active"
	AnnouncementClosed AnnouncementStatus = "closed"
	AnnouncementDraft  AnnouncementStatus = "draft"
)

// Announcement is one catalog record. Uniqueness is keyed by
// (SourceID, ExternalID) with upsert semantics: a re-crawl updates
// mutable fields without creating a second row from the same source.
type Announcement struct {
	ID             string             `json:"id"`
	SourceID       string             `json:"source_id"`
	ExternalID     string             `json:"external_id"`
	Name           string             `json:"name"`
	Organization   string             `json:"organization"`
	Category       string             `json:"category"`
	Region         string             `json:"region"`
	AmountMin      int64              `json:"amount_min"`
	AmountMax      int64              `json:"amount_max"`
	StartDate      *time.Time         `json:"start_date,omitempty"`
	EndDate        *time.Time         `json:"end_date,omitempty"`
	Deadline       *time.Time         `json:"deadline,omitempty"`
	IsPermanent    bool               `json:"is_permanent"`
	Summary        string             `json:"summary"`
	DetailURL      string             `json:"detail_url"`
	NormalizedName string             `json:"normalized_name"`
	NormalizedOrg  string             `json:"normalized_org"`
	GroupID        string             `json:"group_id,omitempty"`
	IsCanonical    bool               `json:"is_canonical"`
	Status         AnnouncementStatus `json:"status"`
	ViewCount      int                `json:"view_count"`
	BookmarkCount  int                `json:"bookmark_count"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	DeletedAt      *time.Time         `json:"deleted_at,omitempty"`
}

// AttachmentType is the coarse file taxonomy used for parse decisions.
type AttachmentType string

// Attachment type values.
const (
	AttachmentHWP   AttachmentType = "hwp"
	AttachmentHWPX  AttachmentType = "hwpx"
	AttachmentPDF   AttachmentType = "pdf"
	AttachmentDoc   AttachmentType = "doc"
	AttachmentSheet AttachmentType = "xls"
	AttachmentZip   AttachmentType = "zip"
	AttachmentImage AttachmentType = "image"
	AttachmentOther AttachmentType = "other"
)

// ParseState is the analysis lifecycle of one attachment.
type ParseState string

// Parse state machine: uploaded -> analyzing -> analyzed | failed.
// failed -> analyzing is allowed on manual reanalysis.
const (
	ParseStateUploaded  ParseState = "uploaded"
	ParseStateAnalyzing ParseState = "analyzing"
	ParseStateAnalyzed  ParseState = "analyzed"
	ParseStateFailed    ParseState = "failed"
)

// Attachment belongs to exactly one Announcement.
//
// StoragePath non-empty means the bytes were retrieved and can be
// re-parsed without re-fetching the origin; empty means only the remote
// URL is known.
type Attachment struct {
	ID             string         `json:"id"`
	AnnouncementID string         `json:"announcement_id"`
	FileName       string         `json:"file_name"`
	Type           AttachmentType `json:"type"`
	MimeType       string         `json:"mime_type"`
	SizeBytes      int64          `json:"size_bytes"`
	SourceURL      string         `json:"source_url"`
	StoragePath    string         `json:"storage_path,omitempty"`
	ContentHash    string         `json:"content_hash,omitempty"`
	ShouldParse    bool           `json:"should_parse"`
	ParseState     ParseState     `json:"parse_state"`
	ParsedContent  string         `json:"parsed_content,omitempty"`
	ParseError     string         `json:"parse_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// GroupReviewStatus flags how a dedup cluster was formed.
type GroupReviewStatus string

// Review status values for project groups.
const (
	GroupAutoGrouped   GroupReviewStatus = "auto_grouped"
	GroupPendingReview GroupReviewStatus = "pending_review"
	GroupConfirmed     GroupReviewStatus = "confirmed"
)

// ProjectGroup is a dedup cluster of announcements considered the same
// real-world program. Exactly one member is canonical.
type ProjectGroup struct {
	ID           string            `json:"id"`
	ReviewStatus GroupReviewStatus `json:"review_status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Chunk is one bounded window of source text stored in the search index.
// Chunks for a (SourceType, SourceID) pair are replaced atomically,
// never updated in place.
type Chunk struct {
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Index      int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Keywords   []string  `json:"keywords"`
	Vector     []float32 `json:"vector"`
}

// Listing is one announcement stub extracted from a listing page.
type Listing struct {
	Title        string `json:"title"`
	DetailLink   string `json:"detail_link"`
	Organization string `json:"organization,omitempty"`
	Date         string `json:"date,omitempty"`
}

// DetailPage is the best-effort result of resolving a detail link.
type DetailPage struct {
	FullText    string           `json:"full_text"`
	Attachments []AttachmentLink `json:"attachments"`
}

// AttachmentLink is a raw attachment reference found on a detail page.
type AttachmentLink struct {
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// FetchResult is the output of the fetch adapter.
type FetchResult struct {
	HTML        string        `json:"html"`
	FinalURL    string        `json:"final_url"`
	StatusCode  int           `json:"status_code"`
	UsedBrowser bool          `json:"used_browser"`
	Duration    time.Duration `json:"-"`
}

// FetchOptions tunes a single fetch.
type FetchOptions struct {
	WaitSelector string
	ForceBrowser bool
}

// AnalysisResult is returned by the external document-analysis collaborator.
type AnalysisResult struct {
	Success         bool              `json:"success"`
	ExtractedData   map[string]string `json:"extracted_data,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	KeyInsights     []string          `json:"key_insights,omitempty"`
	ConfidenceScore float64           `json:"confidence_score,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// StructuredFields is the announcement-level AI extraction output.
type StructuredFields struct {
	Description    string `json:"description"`
	Eligibility    string `json:"eligibility"`
	FundingSummary string `json:"funding_summary"`
	Category       string `json:"category,omitempty"`
	Region         string `json:"region,omitempty"`
}

// SearchResult is one ranked hybrid search hit.
type SearchResult struct {
	SourceType    string  `json:"source_type"`
	SourceID      string  `json:"source_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	Combined      float64 `json:"combined"`
}

// TaskKind discriminates async pipeline work items.
type TaskKind string

// Task kinds handled by the pipeline worker.
const (
	TaskIndex     TaskKind = "index"
	TaskReanalyze TaskKind = "reanalyze"
)

// Task is one async work item: either (re)index one source's text or
// reanalyze one attachment.
type Task struct {
	Kind TaskKind `json:"kind"`

	// Index fields.
	SourceType string `json:"source_type,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	Text       string `json:"text,omitempty"`

	// Reanalysis fields.
	AttachmentID string `json:"attachment_id,omitempty"`
	Force        bool   `json:"force,omitempty"`
}
