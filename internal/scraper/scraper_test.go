package scraper

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"@TomScottGo":                          "https://www.youtube.com/@TomScottGo",
		"TomScottGo":                           "https://www.youtube.com/@TomScottGo",
		"https://www.youtube.com/c/TomScottGo": "https://www.youtube.com/c/TomScottGo",
		"https://www.youtube.com/user/enyay":   "https://www.youtube.com/user/enyay",
	}
	for in, want := range cases {
		if got := normalizeURL(in); got != want {
			t.Errorf("normalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIDFromCanonical(t *testing.T) {
	got := idFromCanonical("https://www.youtube.com/channel/UCBa659QWEk1AI4Tg--mrJ2A")
	if got != "UCBa659QWEk1AI4Tg--mrJ2A" {
		t.Fatalf("got %q", got)
	}
	if got := idFromCanonical("https://www.youtube.com/@TomScottGo"); got != "" {
		t.Fatalf("non-canonical URL yielded %q", got)
	}
	got = idFromCanonical("https://www.youtube.com/channel/UCBa659QWEk1AI4Tg--mrJ2A/videos")
	if got != "UCBa659QWEk1AI4Tg--mrJ2A" {
		t.Fatalf("trailing segment not stripped: %q", got)
	}
}

func TestChannelIDPattern(t *testing.T) {
	if !channelIDRe.MatchString("UCBa659QWEk1AI4Tg--mrJ2A") {
		t.Fatal("valid channel id rejected")
	}
	for _, bad := range []string{"", "@TomScottGo", "UCshort", "PL96C35uN7xGJu6skU4TBYrIWxggkZBrF5"} {
		if channelIDRe.MatchString(bad) {
			t.Errorf("invalid id accepted: %q", bad)
		}
	}
}
