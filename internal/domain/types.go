// Package domain contains core business entities and types for automated
// prior-authorization (PA) decisioning: coverage verification, policy retrieval,
// LLM-based clinical eligibility review, and PA form assembly.
package domain

import (
	"errors"
)

// Recommendation represents a PA decision outcome. APPROVE, DENY and
// NEEDS_REVIEW are produced by the eligibility reasoner; REVIEW is the
// workflow-level conservative outcome used when the eligibility phase
// itself failed and no verdict is available.
type Recommendation string

const (
	APPROVE      Recommendation = "APPROVE"
	DENY         Recommendation = "DENY"
	NEEDS_REVIEW Recommendation = "NEEDS_REVIEW"
	REVIEW       Recommendation = "REVIEW"
)

// IsValid validates that the Recommendation is one of the closed set of
// decision outcomes.
func (r Recommendation) IsValid() bool {
	switch r {
	case APPROVE, DENY, NEEDS_REVIEW, REVIEW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the recommendation.
// Required for proper logging and audit trails.
func (r Recommendation) String() string {
	return string(r)
}

// WorkflowState represents the orchestrator state machine position.
// NOT_COVERED and ERRORED are terminal; COMPLETED is the normal terminal state.
type WorkflowState string

const (
	StateStarted            WorkflowState = "STARTED"
	StateCoverageChecked    WorkflowState = "COVERAGE_CHECKED"
	StateNotCovered         WorkflowState = "NOT_COVERED"
	StatePolicySearched     WorkflowState = "POLICY_SEARCHED"
	StateEligibilityChecked WorkflowState = "ELIGIBILITY_CHECKED"
	StateFormGenerated      WorkflowState = "FORM_GENERATED"
	StateCompleted          WorkflowState = "COMPLETED"
	StateErrored            WorkflowState = "ERRORED"
)

// IsTerminal reports whether the workflow can make no further transitions.
func (s WorkflowState) IsTerminal() bool {
	switch s {
	case StateNotCovered, StateCompleted, StateErrored:
		return true
	default:
		return false
	}
}

// Phase result status values. A phase that failed carries PhaseError plus an
// error message; the workflow still runs to a recommendation.
const (
	PhaseSuccess = "success"
	PhaseError   = "error"
)

// Workflow result status values.
const (
	WorkflowCompleted = "completed"
	WorkflowErrored   = "error"
)

// Sentinel errors for lookups against the patient and coverage stores.
// "Not found" is an expected negative result, never an infrastructure failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyContent = errors.New("language model returned empty content")
)

// Clinically plausible bounds enforced at the data-entry boundary. Records
// outside these ranges are rejected before they reach the core workflow.
const (
	MinAge   = 0
	MaxAge   = 150
	MinBMI   = 10.0
	MaxBMI   = 60.0
	MinHbA1c = 3.0
	MaxHbA1c = 15.0
)
