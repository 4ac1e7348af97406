package subtitles

import (
	"strings"
	"testing"
	"time"
)

const sampleTimedtext = `{
  "events": [
    {"tStartMs": 0, "dDurationMs": 2500, "segs": [{"utf8": "hello"}, {"utf8": "world"}]},
    {"tStartMs": 2500, "dDurationMs": 1000, "segs": [{"utf8": "\n"}]},
    {"tStartMs": 3600500, "dDurationMs": 1250, "segs": [{"utf8": "an hour in"}]}
  ]
}`

func TestParseDropsEmptyEvents(t *testing.T) {
	cues, err := Parse([]byte(sampleTimedtext))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// Two events carry text, the newline-only one is dropped.
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Text != "hello world" {
		t.Fatalf("cue 0 text = %q", cues[0].Text)
	}
	if cues[0].Start != 0 || cues[0].End != 2500*time.Millisecond {
		t.Fatalf("cue 0 times = %v..%v", cues[0].Start, cues[0].End)
	}
}

func TestFormatVTTStamps(t *testing.T) {
	cues, err := Parse([]byte(sampleTimedtext))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	vtt := FormatVTT(cues)
	if !strings.HasPrefix(vtt, "WEBVTT\n") {
		t.Fatalf("missing WEBVTT header: %q", vtt)
	}
	for _, stamp := range []string{
		"00:00:00.000 --> 00:00:02.500",
		"01:00:00.500 --> 01:00:01.750",
	} {
		if !strings.Contains(vtt, stamp) {
			t.Fatalf("expected stamp %q in:\n%s", stamp, vtt)
		}
	}
}

func TestStamp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, "01:02:03.045"},
		{-time.Second, "00:00:00.000"},
	}
	for _, tc := range cases {
		if got := Stamp(tc.in); got != tc.want {
			t.Errorf("Stamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	cues := []Cue{{Text: "first"}, {Text: "second"}}
	if got := PlainText(cues); got != "first second" {
		t.Fatalf("PlainText = %q", got)
	}
}
