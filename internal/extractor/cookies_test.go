package extractor

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/browserutils/kooky"
)

func TestNetscapeFormat(t *testing.T) {
	expires := time.Unix(1700000000, 0)
	cookies := []*kooky.Cookie{
		{Cookie: http.Cookie{
			Domain: ".youtube.com", Path: "/", Secure: true,
			Name: "SID", Value: "abc123", Expires: expires,
		}},
		{Cookie: http.Cookie{
			Domain: "youtube.com", Path: "/feed",
			Name: "PREF", Value: "hl=en", Expires: expires,
		}},
	}

	got := netscapeFormat(cookies)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "# Netscape HTTP Cookie File" {
		t.Errorf("missing netscape header, got %q", lines[0])
	}
	if want := ".youtube.com\tTRUE\t/\tTRUE\t1700000000\tSID\tabc123"; lines[1] != want {
		t.Errorf("dot domain row = %q, want %q", lines[1], want)
	}
	if want := "youtube.com\tFALSE\t/feed\tFALSE\t1700000000\tPREF\thl=en"; lines[2] != want {
		t.Errorf("bare domain row = %q, want %q", lines[2], want)
	}
}
