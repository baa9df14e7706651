// Package extract turns fetched HTML into announcement stubs and detail
// page content. Layout detection is an ordered set of pluggable
// strategies; the strategy yielding the most valid candidates wins.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

const minTitleLen = 5

// noticeMarkers identify pinned rows that are not real announcements.
var noticeMarkers = []string{"공지", "notice", "필독"}

// listingStrategy is a pure html -> candidates function. New site
// layouts are added as new strategies, not new branches.
type listingStrategy struct {
	name    string
	extract func(doc *goquery.Document) []catalog.Listing
}

var listingStrategies = []listingStrategy{
	{name: "table", extract: extractFromTables},
	{name: "list", extract: extractFromLists},
	{name: "regex", extract: extractFromRegex},
}

// Listings extracts announcement stubs from a listing page. It never
// fails: an unrecognized layout yields an empty slice.
func Listings(html string) []catalog.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var (
		best      []catalog.Listing
		bestValid int
	)
	for _, strat := range listingStrategies {
		candidates := strat.extract(doc)
		valid := countValid(candidates)
		if valid > bestValid {
			best = candidates
			bestValid = valid
		}
	}
	if bestValid == 0 {
		return nil
	}
	return filterValid(best)
}

func countValid(listings []catalog.Listing) int {
	n := 0
	for _, l := range listings {
		if isValid(l) {
			n++
		}
	}
	return n
}

func filterValid(listings []catalog.Listing) []catalog.Listing {
	out := make([]catalog.Listing, 0, len(listings))
	for _, l := range listings {
		if isValid(l) {
			out = append(out, l)
		}
	}
	return out
}

func isValid(l catalog.Listing) bool {
	return l.DetailLink != "" && utf8.RuneCountInString(strings.TrimSpace(l.Title)) >= minTitleLen
}

// extractFromTables handles board-style layouts: one data table whose
// rows each carry a linked title cell. Header rows (only th cells) and
// pinned notice rows are skipped; rows without a usable title/link pair
// are silently dropped.
func extractFromTables(doc *goquery.Document) []catalog.Listing {
	var listings []catalog.Listing
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if row.Find("td").Length() == 0 {
				return // header row: th cells only
			}
			if isNoticeRow(row) {
				return
			}
			l, ok := listingFromRow(row)
			if !ok {
				return
			}
			listings = append(listings, l)
		})
	})
	return listings
}

func isNoticeRow(row *goquery.Selection) bool {
	first := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
	for _, marker := range noticeMarkers {
		if first == marker || strings.HasPrefix(first, marker) {
			return true
		}
	}
	return false
}

func listingFromRow(row *goquery.Selection) (catalog.Listing, bool) {
	var l catalog.Listing
	found := false
	row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		anchor := cell.Find("a[href]").First()
		if anchor.Length() == 0 {
			return true
		}
		title := collapseSpace(anchor.Text())
		if title == "" {
			title = collapseSpace(cell.Text())
		}
		if utf8.RuneCountInString(title) < minTitleLen {
			return true
		}
		href, _ := anchor.Attr("href")
		if strings.TrimSpace(href) == "" || strings.HasPrefix(href, "javascript:void") {
			return true
		}
		l.Title = title
		l.DetailLink = strings.TrimSpace(href)
		found = true
		return false
	})
	if !found {
		return catalog.Listing{}, false
	}

	// Remaining cells: best-effort organization and date columns.
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		text := collapseSpace(cell.Text())
		if text == "" || text == l.Title {
			return
		}
		switch {
		case l.Date == "" && dateRe.MatchString(text):
			l.Date = dateRe.FindString(text)
		case l.Organization == "" && looksLikeOrg(text):
			l.Organization = text
		}
	})
	return l, true
}

// extractFromLists handles ul/li and card-grid layouts with at least
// one internal link per item.
func extractFromLists(doc *goquery.Document) []catalog.Listing {
	var listings []catalog.Listing
	seen := map[string]bool{}
	doc.Find("ul li, ol li, div[class*='card'], div[class*='item'], article").Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a[href]").First()
		if anchor.Length() == 0 {
			return
		}
		href, _ := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || seen[href] {
			return
		}
		title := collapseSpace(anchor.Text())
		if title == "" {
			title = collapseSpace(item.Find("strong, h3, h4, .title").First().Text())
		}
		if utf8.RuneCountInString(title) < minTitleLen {
			return
		}
		seen[href] = true
		l := catalog.Listing{Title: title, DetailLink: href}
		if m := dateRe.FindString(item.Text()); m != "" {
			l.Date = m
		}
		listings = append(listings, l)
	})
	return listings
}

var dateRe = regexp.MustCompile(`\d{4}[.\-/]\s?\d{1,2}[.\-/]\s?\d{1,2}`)

// extractFromRegex is the last-resort strategy: anchors whose
// surrounding text carries a date-like substring.
func extractFromRegex(doc *goquery.Document) []catalog.Listing {
	var listings []catalog.Listing
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		title := collapseSpace(anchor.Text())
		if utf8.RuneCountInString(title) < minTitleLen {
			return
		}
		parentText := anchor.Parent().Text()
		date := dateRe.FindString(parentText)
		if date == "" {
			return
		}
		href, _ := anchor.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		listings = append(listings, catalog.Listing{
			Title:      title,
			DetailLink: strings.TrimSpace(href),
			Date:       date,
		})
	})
	return listings
}

func looksLikeOrg(text string) bool {
	if utf8.RuneCountInString(text) > 30 {
		return false
	}
	for _, suffix := range []string{"청", "부", "원", "센터", "재단", "진흥원", "공단", "공사", "협회", "시", "도", "군", "구"} {
		if strings.HasSuffix(text, suffix) {
			return true
		}
	}
	return false
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
