// Package simerr holds the failure taxonomy shared by the evaluation core.
//
// A failed evaluation is always reported through one of these sentinels so
// callers can tell it apart from a legitimately low fitness.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks malformed inputs: unknown tracks, non-positive
	// vehicle dimensions, observation or output vectors of the wrong length.
	ErrConfiguration = errors.New("configuration error")
	// ErrDegenerateRun marks a run that cannot make progress, such as a track
	// without gates. It is raised before the first frame.
	ErrDegenerateRun = errors.New("degenerate run")
)

// Configf wraps ErrConfiguration with a formatted detail message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Degeneratef wraps ErrDegenerateRun with a formatted detail message.
func Degeneratef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegenerateRun, fmt.Sprintf(format, args...))
}
