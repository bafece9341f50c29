package domain

import "errors"

var (
	// ErrInvalidRoot means the scan root is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid scan root")
	// ErrRunInProgress means another non-terminal scan run exists.
	ErrRunInProgress = errors.New("a scan run is already in progress")
	// ErrRegistryUnavailable means the live registry was requested but cannot be reached.
	ErrRegistryUnavailable = errors.New("live registry unavailable")
	ErrFindingNotFound     = errors.New("finding not found")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNoCompletedRun      = errors.New("no completed scan run")
)
