package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrRerenderRequired is returned when an array was modified but
	// RenderOptions.Rerender is not set, so the session cannot continue.
	ErrRerenderRequired = errors.New("tui: array changed but no rerender function configured")
)
