package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"spacing variants collide", "청년 창업 지원사업", "청년창업지원사업"},
		{"punctuation stripped", "[공고] 청년창업 지원사업!", "공고청년창업지원사업"},
		{"year prefix dropped", "2026년 청년창업 지원사업", "청년창업지원사업"},
		{"case folded", "K-Startup Grand Challenge", "kstartupgrandchallenge"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizeName(tc.in))
		})
	}
}

func TestNormalizeOrg(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"synonym collapsed", "중기부", "중소벤처기업부"},
		{"full name unchanged", "중소벤처기업부", "중소벤처기업부"},
		{"corporate suffix dropped", "(주)테스트파트너스", "테스트파트너스"},
		{"english lowered", "KOSMES", "중소벤처기업진흥공단"},
		{"whitespace collapsed", " 창 진 원 ", "창업진흥원"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizeOrg(tc.in))
		})
	}
}

func TestFingerprintStability(t *testing.T) {
	t.Parallel()

	// Variants that should produce the same fingerprint pair.
	n1 := NormalizeName("2026년 소상공인 스마트상점 기술보급사업 공고")
	n2 := NormalizeName("소상공인 스마트상점 기술보급사업 공고")
	require.Equal(t, n1, n2)

	o1 := NormalizeOrg("소진공")
	o2 := NormalizeOrg("소상공인시장진흥공단")
	require.Equal(t, o1, o2)
}
