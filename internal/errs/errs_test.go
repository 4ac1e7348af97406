package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", ErrValidation, false},
		{"not found", ErrNotFound, false},
		{"connection lost", ErrConnectionLost, false},
		{"cookie invalid", ErrCookieInvalid, false},
		{"task aborted", ErrTaskAborted, false},
		{"plain error", errors.New("yt-dlp exited 1"), true},
		{"failed pass", fmt.Errorf("%w: 2 of 5", ErrDownloadsFailed), true},
		{"wrapped connection loss", fmt.Errorf("pass: %w", ErrConnectionLost), false},
	}

	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}
