package domain

import "errors"

var (
	// ErrNoData is returned when a stage produces nothing worth writing.
	// Callers must not create or overwrite output files when they see it.
	ErrNoData = errors.New("no data")

	// ErrScriptArrayNotFound is returned when a page has no matching
	// JavaScript array assignment.
	ErrScriptArrayNotFound = errors.New("script array not found")
)
