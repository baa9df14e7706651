// Package fetch resolves URLs to rendered HTML, choosing a plain HTTP
// GET or a shared headless browser based on a WAF-protected-domain table.
package fetch

import (
	"net/url"
	"strings"
	"sync"
)

// wafDomains lists portal hosts known to sit behind bot mitigation that
// blocks plain HTTP clients. Matching is by host only, independent of
// path and query.
var wafDomains = map[string]struct{}{
	"www.bizinfo.go.kr":     {},
	"www.k-startup.go.kr":   {},
	"www.smes.go.kr":        {},
	"www.mss.go.kr":         {},
	"www.sbiz.or.kr":        {},
	"www.semas.or.kr":       {},
	"www.kosmes.or.kr":      {},
	"www.gyeonggido.go.kr":  {},
	"www.seoulsbdc.or.kr":   {},
	"www.btp.or.kr":         {},
	"www.djbea.or.kr":       {},
	"www.gepa.kr":           {},
	"www.jbba.kr":           {},
	"www.cepa.or.kr":        {},
	"www.gwtp.or.kr":        {},
	"www.jejutp.or.kr":      {},
	"www.incheontp.or.kr":   {},
	"www.uitp.or.kr":        {},
	"www.gbtp.or.kr":        {},
	"www.gntp.or.kr":        {},
	"www.ctp.or.kr":         {},
	"www.djtp.or.kr":        {},
	"www.gdtp.or.kr":        {},
	"www.pohangtp.org":      {},
	"www.wonjutp.or.kr":     {},
	"www.gjtp.or.kr":        {},
	"www.ntis.go.kr":        {},
	"www.iris.go.kr":        {},
	"www.nipa.kr":           {},
	"www.kocca.kr":          {},
	"www.kiat.or.kr":        {},
	"www.keit.re.kr":        {},
	"www.tipa.or.kr":        {},
	"www.kibo.or.kr":        {},
	"www.kodit.co.kr":       {},
	"www.exportcenter.go.kr": {},
}

var wafMu sync.RWMutex

// IsWAFBlockedDomain reports whether the URL's host is in the WAF table.
func IsWAFBlockedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	wafMu.RLock()
	defer wafMu.RUnlock()
	_, ok := wafDomains[host]
	return ok
}

// RegisterWAFDomains adds extra hosts from configuration.
func RegisterWAFDomains(hosts []string) {
	wafMu.Lock()
	defer wafMu.Unlock()
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		wafDomains[h] = struct{}{}
	}
}
