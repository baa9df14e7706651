package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// contentSelectors are tried in order when locating the announcement
// body on a detail page.
var contentSelectors = []string{
	".board-view", ".view-content", ".bbs-view", "#content", ".content",
	"article", "main",
}

// attachmentExtensions map file extensions to attachment candidates.
var attachmentExtensions = map[string]bool{
	".hwp": true, ".hwpx": true, ".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true, ".zip": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// downloadHints are href substrings that mark download endpoints which
// hide the extension behind a handler.
var downloadHints = []string{
	"download", "fileDown", "file_down", "atchFile", "fn_egov_downFile",
}

// Detail resolves a fetched detail page into full text plus attachment
// links. Best effort: a page without recognizable structure still
// yields its visible text.
func Detail(html, pageURL string) catalog.DetailPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return catalog.DetailPage{}
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	text := ""
	for _, sel := range contentSelectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			text = collapseSpace(node.Text())
			break
		}
	}
	if text == "" {
		text = collapseSpace(doc.Find("body").Text())
	}

	return catalog.DetailPage{
		FullText:    text,
		Attachments: attachmentLinks(doc, pageURL),
	}
}

func attachmentLinks(doc *goquery.Document, pageURL string) []catalog.AttachmentLink {
	base, _ := url.Parse(pageURL)
	var links []catalog.AttachmentLink
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		name := collapseSpace(anchor.Text())
		if !isAttachmentHref(href) && !isAttachmentName(name) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		if name == "" {
			name = path.Base(resolved)
		}
		links = append(links, catalog.AttachmentLink{FileName: name, URL: resolved})
	})
	return links
}

func isAttachmentHref(href string) bool {
	lower := strings.ToLower(href)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	if attachmentExtensions[path.Ext(lower)] {
		return true
	}
	for _, hint := range downloadHints {
		if strings.Contains(strings.ToLower(href), strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

func isAttachmentName(name string) bool {
	lower := strings.ToLower(name)
	return attachmentExtensions[path.Ext(lower)]
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
