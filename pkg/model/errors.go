package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the planning call. Callers test with errors.Is; the
// typed wrappers below carry the detail.
var (
	// ErrInvalidRequest marks requests the planner rejects outright:
	// duplicate ids, negative estimates, contradictory weights.
	ErrInvalidRequest = errors.New("invalid plan request")

	// ErrCycleDetected marks a dependency graph that cannot be ordered.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrScheduleInfeasible marks a solve that produced no candidate within
	// its budget. The planner surfaces this as an empty PlanResult, not as a
	// failed call.
	ErrScheduleInfeasible = errors.New("schedule infeasible")
)

// RequestError reports which field of a PlanRequest failed validation.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid plan request: %s: %s", e.Field, e.Reason)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// CycleError carries one witnessing cycle, sorted by task id.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }
