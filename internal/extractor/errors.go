package extractor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"tubearchivist/internal/errs"
)

// classifyError maps yt-dlp stderr output onto the shared error kinds.
func classifyError(stderr string, err error) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "failed to resolve"),
		strings.Contains(lower, "getaddrinfo failed"),
		strings.Contains(lower, "temporary failure in name resolution"):
		return fmt.Errorf("%w: %s", errs.ErrConnectionLost, firstLine(stderr))

	case strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "cookies are no longer valid"),
		strings.Contains(lower, "account cookies"):
		return fmt.Errorf("%w: %s", errs.ErrCookieInvalid, firstLine(stderr))

	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "this channel does not exist"),
		strings.Contains(lower, "playlist does not exist"),
		strings.Contains(lower, "404"):
		return fmt.Errorf("%w: %s", errs.ErrNotFound, firstLine(stderr))
	}

	if stderr != "" {
		return fmt.Errorf("yt-dlp failed: %s: %w", firstLine(stderr), err)
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}
