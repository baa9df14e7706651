// Package analysis talks to the external document-understanding
// service and drives the attachment parse lifecycle.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

const maxExtractChars = 20000

// Client calls the document AI service over HTTP. It implements both
// catalog.Analyzer and catalog.Embedder.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a Client for the given service endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has enough configuration to call out.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type analyzeRequest struct {
	DocumentType string `json:"document_type"`
	MimeType     string `json:"mime_type"`
	Content      []byte `json:"content"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Fields catalog.StructuredFields `json:"fields"`
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// AnalyzeDocument submits one attachment's bytes for parsing.
func (c *Client) AnalyzeDocument(ctx context.Context, docType catalog.AttachmentType, content []byte, mimeType string) (catalog.AnalysisResult, error) {
	if !c.Enabled() {
		return catalog.AnalysisResult{}, errors.New("analysis service not configured")
	}
	var out catalog.AnalysisResult
	err := c.postJSON(ctx, "/v1/documents/analyze", analyzeRequest{
		DocumentType: string(docType),
		MimeType:     mimeType,
		Content:      content,
	}, &out)
	if err != nil {
		return catalog.AnalysisResult{}, err
	}
	if !out.Success && out.Error == "" {
		out.Error = "analysis failed without detail"
	}
	return out, nil
}

// ExtractFields asks the service for announcement-level structured
// fields from the combined page and attachment text.
func (c *Client) ExtractFields(ctx context.Context, fullText string) (*catalog.StructuredFields, error) {
	if !c.Enabled() {
		return nil, errors.New("analysis service not configured")
	}
	text := strings.TrimSpace(fullText)
	if text == "" {
		return nil, errors.New("no text to extract from")
	}
	text = truncateOnRune(text, maxExtractChars)
	var out extractResponse
	if err := c.postJSON(ctx, "/v1/announcements/extract", extractRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out.Fields, nil
}

// truncateOnRune caps s at max bytes without splitting a UTF-8
// sequence. Korean text is three bytes per rune, so a plain byte slice
// would regularly cut mid-character.
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Embed returns the embedding vector for one chunk of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.Enabled() {
		return nil, errors.New("analysis service not configured")
	}
	var out embedResponse
	if err := c.postJSON(ctx, "/v1/embeddings", embedRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Vector) == 0 {
		return nil, errors.New("empty embedding")
	}
	return out.Vector, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		err := fmt.Errorf("analysis service %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			return &catalog.PersistenceError{Op: "analysis call", Transient: true, Err: err}
		}
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
