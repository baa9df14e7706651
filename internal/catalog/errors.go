package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("not found")

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

// Fetch failure classes.
const (
	FetchTransient FetchErrorKind = "transient"
	FetchBlocked   FetchErrorKind = "blocked"
	FetchTimeout   FetchErrorKind = "timeout"
)

// FetchError reports a failed page fetch.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err with a fetch classification.
func NewFetchError(kind FetchErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// ClassifyFetchError derives the fetch error kind from the underlying cause.
func ClassifyFetchError(statusCode int, err error) FetchErrorKind {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return FetchTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return FetchTimeout
		}
	}
	switch {
	case statusCode == 403 || statusCode == 429:
		return FetchBlocked
	case statusCode >= 500:
		return FetchTransient
	default:
		return FetchTransient
	}
}

// DetailFetchError reports a total failure to resolve a detail page.
type DetailFetchError struct {
	Link string
	Err  error
}

func (e *DetailFetchError) Error() string {
	return fmt.Sprintf("resolve detail %s: %v", e.Link, e.Err)
}

func (e *DetailFetchError) Unwrap() error { return e.Err }

// AnalysisError reports a failed document analysis.
type AnalysisError struct {
	AttachmentID string
	Err          error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze attachment %s: %v", e.AttachmentID, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store operation with a transient flag
// consulted by the retry policy.
type PersistenceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// transientSignatures are substrings of driver errors that indicate a
// retryable condition (pool exhaustion, timeouts).
var transientSignatures = []string{
	"connection pool",
	"too many connections",
	"connection reset",
	"timeout",
	"timed out",
	"deadline exceeded",
	"temporarily unavailable",
}

// IsTransient reports whether err should be retried by WithRetry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
