package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoViableLength is returned when every candidate length of a sweep
	// was disqualified by probe failures.
	ErrNoViableLength = errors.New("no viable password length")

	// ErrEmptyCandidates is returned when a selection is requested over an
	// empty candidate space (max length < 1 or empty alphabet).
	ErrEmptyCandidates = errors.New("empty candidate space")
)

// NetworkError reports a single probe that failed to complete
type NetworkError struct {
	URL        string
	StatusCode int // set when a non-success status was treated as fatal
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("probe %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StuckAtPositionError is returned when no alphabet character produced a
// usable measurement at a position
type StuckAtPositionError struct {
	Position int
	Prefix   string
}

func (e *StuckAtPositionError) Error() string {
	return fmt.Sprintf("stuck at position %d (recovered so far %q): every character failed", e.Position, e.Prefix)
}

// StageError attributes a failure to the attack stage it happened in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
