package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// PlainConfig controls the plain HTTP fetcher.
type PlainConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// PlainFetcher executes a single HTTP GET using Colly. It is a
// single-attempt primitive: callers decide whether to retry.
type PlainFetcher struct {
	cfg           PlainConfig
	baseCollector *colly.Collector
}

// NewPlain builds a PlainFetcher.
func NewPlain(cfg PlainConfig) *PlainFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &PlainFetcher{cfg: cfg, baseCollector: c}
}

// Fetch performs the GET and returns the raw HTML.
func (f *PlainFetcher) Fetch(ctx context.Context, url string, _ catalog.FetchOptions) (catalog.FetchResult, error) {
	var (
		result   catalog.FetchResult
		fetchErr error
		status   int
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = catalog.FetchResult{
			HTML:       string(r.Body),
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return catalog.FetchResult{}, catalog.NewFetchError(catalog.FetchTimeout, url, ctx.Err())
	case err := <-done:
		if err != nil {
			return catalog.FetchResult{}, catalog.NewFetchError(catalog.ClassifyFetchError(status, err), url, err)
		}
	}
	if fetchErr != nil {
		return catalog.FetchResult{}, catalog.NewFetchError(catalog.ClassifyFetchError(status, fetchErr), url, fetchErr)
	}
	if result.StatusCode >= 400 {
		kind := catalog.ClassifyFetchError(result.StatusCode, nil)
		return catalog.FetchResult{}, catalog.NewFetchError(kind, url, fmt.Errorf("status %d", result.StatusCode))
	}
	return result, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
