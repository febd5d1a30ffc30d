package tracker

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSprintActive is returned by BeginSprint while a sprint is open.
	ErrSprintActive = errors.New("a sprint is already in progress")

	// ErrNoSprint is returned by EndSprint when no sprint is open.
	ErrNoSprint = errors.New("no sprint in progress")
)

// SampleError is a transient sampler failure. The tick that hit it is skipped.
type SampleError struct {
	Query string // "focused_window" or "idle"
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.Query, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }
