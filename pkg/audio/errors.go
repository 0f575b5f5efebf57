package audio

import (
	"fmt"
)

// ErrDecode is returned when an input file is not valid audio
// or has no samples.
type ErrDecode struct {
	Path string
	Err  error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("unable to decode audio file '%s': %v", e.Path, e.Err)
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// ErrInvalidParameter is returned when a stage is called with a parameter
// value it cannot work with.
type ErrInvalidParameter struct {
	Stage  string
	Name   string
	Value  any
	Reason string
}

func (e ErrInvalidParameter) Error() string {
	return fmt.Sprintf("%s: invalid parameter %s=%v: %s", e.Stage, e.Name, e.Value, e.Reason)
}

// ErrInference is returned when the external model fails.
type ErrInference struct {
	Backend string
	Err     error
}

func (e ErrInference) Error() string {
	return fmt.Sprintf("inference failed (backend '%s'): %v", e.Backend, e.Err)
}

func (e ErrInference) Unwrap() error {
	return e.Err
}

// ErrNumericDegeneracy is returned instead of silently dividing by zero
// (or similar) on a degenerate input.
type ErrNumericDegeneracy struct {
	Stage  string
	Reason string
}

func (e ErrNumericDegeneracy) Error() string {
	return fmt.Sprintf("%s: numerically degenerate input: %s", e.Stage, e.Reason)
}
