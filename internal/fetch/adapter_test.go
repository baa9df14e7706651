package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

type stubFetcher struct {
	result catalog.FetchResult
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, _ catalog.FetchOptions) (catalog.FetchResult, error) {
	s.calls++
	return s.result, s.err
}

func fullPage() string {
	return "<html><body>" + strings.Repeat("<p>지원사업 공고 내용</p>", 200) + "</body></html>"
}

func TestAdapter_PlainPathForUnlistedDomain(t *testing.T) {
	t.Parallel()

	plain := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200}}
	browser := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200, UsedBrowser: true}}
	a := NewAdapter(plain, browser, zap.NewNop())

	res, err := a.Fetch(context.Background(), "https://plain.example.com/list", catalog.FetchOptions{})
	require.NoError(t, err)
	require.False(t, res.UsedBrowser)
	require.Equal(t, 1, plain.calls)
	require.Equal(t, 0, browser.calls)
}

func TestAdapter_BrowserPathForWAFDomain(t *testing.T) {
	t.Parallel()

	plain := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200}}
	browser := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200, UsedBrowser: true}}
	a := NewAdapter(plain, browser, zap.NewNop())

	res, err := a.Fetch(context.Background(), "https://www.bizinfo.go.kr/list.do", catalog.FetchOptions{})
	require.NoError(t, err)
	require.True(t, res.UsedBrowser)
	require.Equal(t, 0, plain.calls)
	require.Equal(t, 1, browser.calls)
}

func TestAdapter_ForceBrowserOption(t *testing.T) {
	t.Parallel()

	plain := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200}}
	browser := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200, UsedBrowser: true}}
	a := NewAdapter(plain, browser, zap.NewNop())

	res, err := a.Fetch(context.Background(), "https://plain.example.com/list", catalog.FetchOptions{ForceBrowser: true})
	require.NoError(t, err)
	require.True(t, res.UsedBrowser)
}

func TestAdapter_PromotesSPAShell(t *testing.T) {
	t.Parallel()

	plain := &stubFetcher{result: catalog.FetchResult{HTML: `<html><body><div id="root"></div></body></html>`, StatusCode: 200}}
	browser := &stubFetcher{result: catalog.FetchResult{HTML: fullPage(), StatusCode: 200, UsedBrowser: true}}
	a := NewAdapter(plain, browser, zap.NewNop())

	res, err := a.Fetch(context.Background(), "https://spa.example.com/list", catalog.FetchOptions{})
	require.NoError(t, err)
	require.True(t, res.UsedBrowser)
	require.Equal(t, 1, plain.calls)
	require.Equal(t, 1, browser.calls)
}

func TestAdapter_PromotionFailureKeepsPlainResult(t *testing.T) {
	t.Parallel()

	shell := `<html><body><div id="app"></div></body></html>`
	plain := &stubFetcher{result: catalog.FetchResult{HTML: shell, StatusCode: 200}}
	browser := &stubFetcher{err: catalog.NewFetchError(catalog.FetchTimeout, "x", errors.New("nav timeout"))}
	a := NewAdapter(plain, browser, zap.NewNop())

	res, err := a.Fetch(context.Background(), "https://spa.example.com/list", catalog.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, shell, res.HTML)
	require.False(t, res.UsedBrowser)
}

func TestAdapter_PlainErrorPropagates(t *testing.T) {
	t.Parallel()

	plain := &stubFetcher{err: catalog.NewFetchError(catalog.FetchTransient, "x", errors.New("boom"))}
	a := NewAdapter(plain, nil, zap.NewNop())

	_, err := a.Fetch(context.Background(), "https://plain.example.com/list", catalog.FetchOptions{})
	var fe *catalog.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, catalog.FetchTransient, fe.Kind)
}

func TestLooksUnrendered(t *testing.T) {
	t.Parallel()

	require.True(t, looksUnrendered(""))
	require.True(t, looksUnrendered(`<div data-reactroot></div>`))
	require.False(t, looksUnrendered(fullPage()))

	scriptShell := `<html><head><script>window.bootstrap()</script></head><body></body></html>`
	require.True(t, looksUnrendered(scriptShell))
}
