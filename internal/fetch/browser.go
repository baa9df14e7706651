package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// BrowserConfig controls the shared headless browser.
type BrowserConfig struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// BrowserFetcher renders pages with a single shared Chrome process.
// The browser allocator is created lazily on first use and torn down by
// Close at the end of a batch run; each fetch opens its own tab.
type BrowserFetcher struct {
	cfg     BrowserConfig
	limiter chan struct{}

	mu          sync.Mutex
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewBrowser builds a BrowserFetcher. The Chrome process is not started
// until the first Fetch.
func NewBrowser(cfg BrowserConfig) *BrowserFetcher {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &BrowserFetcher{cfg: cfg, limiter: limiter}
}

// Close tears down the shared browser process. Safe to call when the
// browser was never started, and safe to call more than once.
func (f *BrowserFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocator = nil
		f.allocCancel = nil
	}
}

func (f *BrowserFetcher) allocatorCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allocator == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("lang", "ko-KR"),
		)
		f.allocator, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return f.allocator
}

// Fetch navigates in a fresh tab and returns the rendered DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, opts catalog.FetchOptions) (catalog.FetchResult, error) {
	if err := f.acquire(ctx); err != nil {
		return catalog.FetchResult{}, catalog.NewFetchError(catalog.FetchTimeout, url, err)
	}
	defer f.release()

	tabCtx, tabCancel := chromedp.NewContext(f.allocatorCtx())
	defer tabCancel()

	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if opts.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
	} else {
		// Small settle time for client-side rendered listings.
		actions = append(actions, chromedp.Sleep(500*time.Millisecond))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		kind := catalog.ClassifyFetchError(0, err)
		if tabCtx.Err() != nil {
			kind = catalog.FetchTimeout
		}
		return catalog.FetchResult{}, catalog.NewFetchError(kind, url, fmt.Errorf("chromedp run: %w", err))
	}
	if finalURL == "" {
		finalURL = url
	}
	return catalog.FetchResult{
		HTML:        html,
		FinalURL:    finalURL,
		StatusCode:  200,
		UsedBrowser: true,
		Duration:    time.Since(start),
	}, nil
}

func (f *BrowserFetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (f *BrowserFetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
