package domain

import (
	"errors"
	"fmt"
)

// ErrOutOfTips is returned when a pick-up is required and no attached tip
// rack has a tip left. It surfaces at execution time, only when the
// pick-up step is actually reached.
var ErrOutOfTips = errors.New("out of tips")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when beginning a run whose ID is already
// taken. Records are never silently recycled.
var ErrRunExists = errors.New("run already exists")

// ConfigurationError reports an invalid transfer request. It is raised
// while the plan is built, before any hardware action happens.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid transfer configuration: " + e.Reason
}

// Configf builds a ConfigurationError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// StateError reports a primitive issued against instrument state that
// cannot honor it, e.g. aspirating with no tip attached or touching tip
// with no location cached. Hardware failures are not StateErrors; they
// propagate from the instrument untouched.
type StateError struct {
	Op     Op
	Reason string
}

func (e *StateError) Error() string {
	if e.Op == "" {
		return "invalid instrument state: " + e.Reason
	}
	return fmt.Sprintf("%s: invalid instrument state: %s", e.Op, e.Reason)
}

// Statef builds a StateError for the given operation.
func Statef(op Op, format string, args ...any) error {
	return &StateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
