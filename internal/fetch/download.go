package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// DownloadConfig controls the binary attachment downloader.
type DownloadConfig struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBytes caps a single download. Zero means the classifier's
	// default size ceiling applies upstream and we read to EOF.
	MaxBytes int64
}

// Downloader retrieves attachment bytes over plain HTTP. Portals serve
// file downloads from regular endpoints, so no browser path is needed.
type Downloader struct {
	cfg    DownloadConfig
	client *http.Client
}

// NewDownloader builds a Downloader.
func NewDownloader(cfg DownloadConfig) *Downloader {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Downloader{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
	}
}

// Download fetches the file and returns its bytes and content type.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", catalog.NewFetchError(catalog.ClassifyFetchError(0, err), url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		kind := catalog.ClassifyFetchError(resp.StatusCode, nil)
		return nil, "", catalog.NewFetchError(kind, url, fmt.Errorf("status %d", resp.StatusCode))
	}

	reader := io.Reader(resp.Body)
	if d.cfg.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", catalog.NewFetchError(catalog.FetchTransient, url, err)
	}
	if d.cfg.MaxBytes > 0 && int64(len(data)) > d.cfg.MaxBytes {
		return nil, "", fmt.Errorf("download %s exceeds %d bytes", url, d.cfg.MaxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
