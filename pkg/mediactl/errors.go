package mediactl

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a discovery step runs before its prerequisite.
	ErrNotInitialized = errors.New("audio subsystem not initialized")

	// ErrNoDefaultDevice is returned when the host has no default render endpoint.
	ErrNoDefaultDevice = errors.New("no default audio endpoint")

	// ErrMediaUnavailable is returned when no media session is currently active.
	ErrMediaUnavailable = errors.New("no active media session")

	// ErrUnsupportedPlatform is returned by the OS bindings on hosts other than Windows.
	ErrUnsupportedPlatform = errors.New("audio control is only supported on windows")
)

// ForeignError wraps a failure reported by the OS audio layer. Everything that
// crosses into the host's audio facilities converts its failures into one of these
// before handing them back to the rest of the package.
type ForeignError struct {
	Op  string
	Err error
}

func (e *ForeignError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ForeignError) Unwrap() error {
	return e.Err
}

func foreignError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ForeignError{Op: op, Err: err}
}
