package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoPage is returned when a session is built without a mounted page.
	ErrNoPage = errors.New("tui: page is required")
)
