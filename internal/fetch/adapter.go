package fetch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// Adapter routes fetches between the plain and browser paths. WAF-listed
// hosts (and explicitly browser-typed sources) go straight to the
// browser; everything else is tried plain first and promoted to the
// browser when the response looks like an unrendered SPA shell.
type Adapter struct {
	plain   catalog.Fetcher
	browser catalog.Fetcher
	logger  *zap.Logger
}

// NewAdapter builds an Adapter. browser may be nil, in which case every
// fetch uses the plain path.
func NewAdapter(plain, browser catalog.Fetcher, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{plain: plain, browser: browser, logger: logger}
}

// Fetch resolves the URL to rendered HTML. Single attempt per path; the
// caller owns retries.
func (a *Adapter) Fetch(ctx context.Context, url string, opts catalog.FetchOptions) (catalog.FetchResult, error) {
	if a.browser != nil && (opts.ForceBrowser || IsWAFBlockedDomain(url)) {
		return a.browser.Fetch(ctx, url, opts)
	}

	result, err := a.plain.Fetch(ctx, url, opts)
	if err != nil {
		return catalog.FetchResult{}, err
	}
	if a.browser != nil && looksUnrendered(result.HTML) {
		a.logger.Debug("promoting fetch to browser", zap.String("url", url))
		rendered, berr := a.browser.Fetch(ctx, url, opts)
		if berr != nil {
			// Keep the plain result rather than failing the item.
			a.logger.Warn("browser promotion failed", zap.String("url", url), zap.Error(berr))
			return result, nil
		}
		return rendered, nil
	}
	return result, nil
}

var spaMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
}

const shellBodyThreshold = 2048

// looksUnrendered reports whether the HTML is an SPA shell that needs a
// real browser to produce content.
func looksUnrendered(html string) bool {
	if len(html) == 0 {
		return true
	}
	for _, marker := range spaMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return len(html) < shellBodyThreshold && scriptDensityHigh(html)
}

func scriptDensityHigh(html string) bool {
	lower := strings.ToLower(html)
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1
		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}
		coverage += next - start
		pos = next
	}
	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
