// Package subtitles converts YouTube timedtext JSON into WebVTT cues
// and indexes them per video.
package subtitles

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source labels for subtitle tracks.
const (
	SourceUser = "user"
	SourceAuto = "auto"
)

// Response is the raw timedtext API document.
type Response struct {
	Events []Event `json:"events"`
}

// Event is one timed caption event in milliseconds.
type Event struct {
	TStartMs    int64     `json:"tStartMs"`
	DDurationMs int64     `json:"dDurationMs"`
	Segs        []Segment `json:"segs"`
}

// Segment is one text run inside an event.
type Segment struct {
	UTF8 string `json:"utf8"`
}

// Text joins the event's segments, dropping pure-newline runs.
func (e *Event) Text() string {
	var parts []string
	for _, s := range e.Segs {
		t := strings.TrimSpace(s.UTF8)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Cue is one converted subtitle cue.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Parse decodes a timedtext document into cues. Events without any
// text are dropped, so the cue count equals the non-empty event count.
func Parse(raw []byte) ([]Cue, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode timedtext: %w", err)
	}

	cues := make([]Cue, 0, len(resp.Events))
	for _, ev := range resp.Events {
		text := ev.Text()
		if text == "" {
			continue
		}
		start := time.Duration(ev.TStartMs) * time.Millisecond
		cues = append(cues, Cue{
			Start: start,
			End:   start + time.Duration(ev.DDurationMs)*time.Millisecond,
			Text:  text,
		})
	}
	return cues, nil
}

// FormatVTT renders cues as a WebVTT file.
func FormatVTT(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n", Stamp(c.Start), Stamp(c.End), c.Text)
	}
	return b.String()
}

// Stamp renders a duration as HH:MM:SS.mmm.
func Stamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// PlainText flattens cues into one searchable line block, used for the
// indexed subtitle documents.
func PlainText(cues []Cue) string {
	lines := make([]string, len(cues))
	for i, c := range cues {
		lines[i] = c.Text
	}
	return strings.Join(lines, " ")
}
