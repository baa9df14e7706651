package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart     Stage = "JOB_START"
	StageJobHB        Stage = "JOB_HEARTBEAT"
	StageJobDone      Stage = "JOB_DONE"
	StageJobError     Stage = "JOB_ERROR"
	StagePageFetched  Stage = "PAGE_FETCHED"
	StageItemDone     Stage = "ITEM_DONE"
	StageItemError    Stage = "ITEM_ERROR"
	StageFileStored   Stage = "FILE_STORED"
	StageAnalysisDone Stage = "ANALYSIS_DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for page fetches.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// FetchMode labels which fetch path produced a page.
type FetchMode string

// Fetch path labels.
const (
	ModePlain   FetchMode = "plain"
	ModeBrowser FetchMode = "browser"
)

// Event captures a single milestone of pipeline progress.
type Event struct {
	// JobID identifies the crawl job run.
	JobID string
	// SourceID scopes events to the portal being crawled.
	SourceID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or item milestone occurred.
	Stage Stage
	// URL is the optional page or file URL; it should not contain credentials.
	URL string
	// Bytes carries the response size for page fetches and stored files.
	Bytes int64
	// Items increments for listing rows found and announcements processed.
	Items int64
	// StatusClass groups HTTP response codes (2xx, 3xx, etc).
	StatusClass StatusClass
	// Mode labels the fetch path for page events.
	Mode FetchMode
	// Dur captures execution latency for fetches and job completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobHB, StageJobDone, StageJobError:
	case StageItemDone, StageItemError, StageFileStored, StageAnalysisDone:
		if e.SourceID == "" {
			return errors.New("item events require source")
		}
	case StagePageFetched:
		if e.SourceID == "" {
			return errors.New("page fetched requires source")
		}
		if e.StatusClass == "" {
			return errors.New("page fetched requires status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for page fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
