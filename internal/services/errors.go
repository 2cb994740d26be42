package services

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")

	// ErrLocationNotFound is returned when a location ID resolves to nothing.
	ErrLocationNotFound = errors.New("location not found")

	// ErrGenerationFailed is returned when the generation call fails before
	// producing any output; the session state is untouched and a retry
	// re-enters the same state.
	ErrGenerationFailed = errors.New("generation failed")
)
