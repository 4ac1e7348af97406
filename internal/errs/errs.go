// Package errs holds the sentinel error values shared between components.
package errs

import "errors"

var (
	// ErrNotFound marks a missing document, key or media file.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks bad input rejected at the boundary. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrCookieInvalid marks a revoked or expired cookie jar.
	ErrCookieInvalid = errors.New("cookie invalid")

	// ErrConnectionLost is fatal for the current batch: the host lost
	// network access entirely, retrying individual items is pointless.
	ErrConnectionLost = errors.New("lost connection")

	// ErrDownloadsFailed marks a download pass that left failed rows
	// behind. Unlike ErrConnectionLost the pass is worth repeating.
	ErrDownloadsFailed = errors.New("downloads failed")

	// ErrTaskAborted is returned by workers that observed a STOP command.
	ErrTaskAborted = errors.New("task aborted")

	// ErrTaskDuplicate is returned when a task of the same kind already
	// holds the run slot.
	ErrTaskDuplicate = errors.New("task already running")
)

// Retryable reports whether err is worth another attempt. Validation
// failures, missing documents and fatal network loss are terminal.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrTaskAborted),
		errors.Is(err, ErrTaskDuplicate),
		errors.Is(err, ErrCookieInvalid):
		return false
	}
	return true
}
