package watchsession

import "errors"

var (
	// ErrInvalidPath is returned when the watch target is missing or not a directory.
	ErrInvalidPath = errors.New("invalid directory path")
	// ErrWatcherInit is returned when the OS watch could not be created or registered.
	ErrWatcherInit = errors.New("failed to watch directory")
	// ErrClosed is returned once the manager has been closed.
	ErrClosed = errors.New("watch manager is closed")
)
