package downloads

import (
	"regexp"
	"strconv"
	"strings"
)

// progressRe matches the yt-dlp per-line download progress output, e.g.
// "[download]  42.5% of 120.00MiB at 2.50MiB/s ETA 00:32".
var progressRe = regexp.MustCompile(
	`\[download\]\s+([\d.]+)%\s+of\s+~?\s*([\d.]+\w+)(?:\s+at\s+([\d.\w/ ]+?))?(?:\s+ETA\s+([\d:]+))?\s*$`)

// Progress is one parsed progress update.
type Progress struct {
	// Percent in 0..100 as reported.
	Percent float64
	// Message in the user-facing form "<percent> of <size> at <speed>
	// - time left: <eta>".
	Message string
}

// Fraction returns the progress scaled to 0..1.
func (p Progress) Fraction() float64 {
	return p.Percent / 100
}

// ParseProgress extracts a progress update from one yt-dlp output line.
// Non-progress lines return ok=false.
func ParseProgress(line string) (Progress, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}

	var b strings.Builder
	b.WriteString(m[1])
	b.WriteString("% of ")
	b.WriteString(m[2])
	if m[3] != "" {
		b.WriteString(" at ")
		b.WriteString(strings.TrimSpace(m[3]))
	}
	if m[4] != "" {
		b.WriteString(" - time left: ")
		b.WriteString(m[4])
	}

	return Progress{Percent: percent, Message: b.String()}, true
}
