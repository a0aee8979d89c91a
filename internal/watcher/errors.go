package watcher

import "errors"

var (
	// ErrSourceUnavailable wraps capture failures, typically a pane or session
	// that no longer exists.
	ErrSourceUnavailable = errors.New("snapshot source unavailable")
	// ErrSinkFailure wraps keystroke delivery failures.
	ErrSinkFailure = errors.New("keystroke sink failure")
)
