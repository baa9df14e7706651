package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const tableListingHTML = `
<html><body>
<table class="board-list">
  <tr><th>번호</th><th>제목</th><th>기관</th><th>등록일</th></tr>
  <tr>
    <td>공지</td>
    <td><a href="/view.do?id=999">홈페이지 이용 안내 및 점검 공지</a></td>
    <td>운영팀</td><td>2026-01-01</td>
  </tr>
  <tr>
    <td>2</td>
    <td><a href="/view.do?id=102">2026년 청년창업 지원사업 공고</a></td>
    <td>중소벤처기업부</td><td>2026-08-01</td>
  </tr>
  <tr>
    <td>1</td>
    <td><a href="/view.do?id=101">소상공인 경영안정자금 지원 안내</a></td>
    <td>소상공인시장진흥공단</td><td>2026-07-28</td>
  </tr>
</table>
</body></html>`

func TestListings_TableLayoutSkipsNoticeRow(t *testing.T) {
	t.Parallel()

	got := Listings(tableListingHTML)
	require.Len(t, got, 2)
	require.Equal(t, "2026년 청년창업 지원사업 공고", got[0].Title)
	require.Equal(t, "/view.do?id=102", got[0].DetailLink)
	require.Equal(t, "2026-08-01", got[0].Date)
	require.Equal(t, "소상공인 경영안정자금 지원 안내", got[1].Title)
}

func TestListings_ListLayout(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
<ul class="bbs-list">
  <li><a href="/notice/201">수출바우처 참여기업 모집 공고</a><span>2026.08.10</span></li>
  <li><a href="/notice/202">스마트공장 구축 지원사업 안내</a><span>2026.08.12</span></li>
  <li><a href="#top">TOP</a></li>
</ul>
</body></html>`

	got := Listings(html)
	require.Len(t, got, 2)
	require.Equal(t, "수출바우처 참여기업 모집 공고", got[0].Title)
	require.Equal(t, "/notice/201", got[0].DetailLink)
	require.Equal(t, "2026.08.10", got[0].Date)
}

func TestListings_RegexFallback(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
<div>
  <p>2026-08-15 <a href="/p/55">경기도 중소기업 기술개발 지원 공고</a></p>
</div>
</body></html>`

	got := Listings(html)
	require.Len(t, got, 1)
	require.Equal(t, "/p/55", got[0].DetailLink)
	require.Equal(t, "2026-08-15", got[0].Date)
}

func TestListings_UnrecognizedLayoutIsEmptyNotError(t *testing.T) {
	t.Parallel()

	require.Empty(t, Listings("<html><body><p>just text, no links</p></body></html>"))
	require.Empty(t, Listings(""))
}

func TestListings_DropsShortTitles(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
<table>
  <tr><th>제목</th></tr>
  <tr><td><a href="/a">더보기</a></td></tr>
  <tr><td><a href="/b">2026년 창업도약패키지 모집</a></td></tr>
</table>
</body></html>`

	got := Listings(html)
	require.Len(t, got, 1)
	require.Equal(t, "/b", got[0].DetailLink)
}

func TestListings_PrefersStrategyWithMoreValidCandidates(t *testing.T) {
	t.Parallel()

	// One linked row inside a table, three card items: list strategy wins.
	html := `
<html><body>
<table><tr><th>h</th></tr><tr><td><a href="/t/1">테이블 단독 공고 하나</a></td></tr></table>
<div class="card"><a href="/c/1">카드형 지원사업 공고 첫번째</a></div>
<div class="card"><a href="/c/2">카드형 지원사업 공고 두번째</a></div>
<div class="card"><a href="/c/3">카드형 지원사업 공고 세번째</a></div>
</body></html>`

	got := Listings(html)
	require.Len(t, got, 3)
	for _, l := range got {
		require.Contains(t, l.DetailLink, "/c/")
	}
}
