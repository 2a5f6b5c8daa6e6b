// Package engine drives the bounded pagination loop of a managed connector,
// enriches extracted records, and classifies every failure by the phase in
// which it occurred.
package engine

import (
	"errors"
	"fmt"
)

// Phase tags a terminal pagination failure with where it happened. The sync
// driver switches on the phase to pick the reporting action.
type Phase string

const (
	// PhaseEmptyStart means the very first page was empty and empty starts
	// were not tolerated: no data is reachable at all. Not retryable.
	PhaseEmptyStart Phase = "empty_start"
	// PhaseEarly means iteration 0 failed before any record was extracted.
	PhaseEarly Phase = "early"
	// PhaseMid means a later iteration failed after partial progress.
	PhaseMid Phase = "mid"
	// PhaseMaxIterations means the loop hit the iteration ceiling without
	// terminating.
	PhaseMaxIterations Phase = "max_iterations"
)

// Failure is a terminal pagination outcome carrying the original cause text.
type Failure struct {
	Phase Phase
	Cause string
}

func (f *Failure) Error() string {
	switch f.Phase {
	case PhaseEmptyStart:
		return "list fetch returned no data at the beginning"
	case PhaseMaxIterations:
		return fmt.Sprintf("connector exceeded processing limit of %d iterations", MaxIterations)
	default:
		return fmt.Sprintf("failed to fetch the list of items: %s", f.Cause)
	}
}

// AsFailure unwraps err into a *Failure if it carries one.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

func newFailure(phase Phase, cause string) *Failure {
	return &Failure{Phase: phase, Cause: cause}
}
