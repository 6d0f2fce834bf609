// SPDX-License-Identifier: MPL-2.0

package convert

import "fmt"

const (
	StateInit State = iota
	StateCheckShape
	StateTransform
	StatePersist
	StateValidate
	StatePassed
	StateExhaustedRetries
	StateFatalError
	// StateSkipped ends a run that had no build platform to convert for.
	StateSkipped
)

const (
	VerdictUnknown Verdict = iota
	VerdictPassed
	VerdictFailed
)

type (
	// State is a node of the conversion state machine.
	State int

	// Verdict is the tri-state validation result carried in RetryState.
	Verdict int

	// RetryState is owned by the controller for the duration of one run.
	RetryState struct {
		// Attempt counts retries consumed; it only ever grows and never exceeds MaxAttempts.
		Attempt int
		// MaxAttempts is the retry budget after the first validation.
		MaxAttempts int
		// LastError is the diagnostic of the most recent failed validation.
		LastError string
		// Passed is unknown until the first validation completes.
		Passed Verdict
	}

	// BuildDescription tracks which Dockerfile is live during a run.
	BuildDescription struct {
		// OriginalPath is the Dockerfile named by the caller, relative to the work root.
		OriginalPath string
		// WorkingPath is empty until the first write, then the derived variant.
		WorkingPath string
	}
)

var stateNames = [...]string{
	StateInit:             "Init",
	StateCheckShape:       "CheckShape",
	StateTransform:        "Transform",
	StatePersist:          "Persist",
	StateValidate:         "Validate",
	StatePassed:           "Passed",
	StateExhaustedRetries: "ExhaustedRetries",
	StateFatalError:       "FatalError",
	StateSkipped:          "Skipped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether the run has ended.
func (s State) IsTerminal() bool {
	switch s {
	case StatePassed, StateExhaustedRetries, StateFatalError, StateSkipped:
		return true
	default:
		return false
	}
}

func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "passed"
	case VerdictFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// isAllowedTransition encodes the edges of the state machine. FatalError is
// reachable from every non-terminal state.
func isAllowedTransition(from, to State) bool {
	if to == StateFatalError {
		return !from.IsTerminal()
	}
	switch from {
	case StateInit:
		return to == StateCheckShape || to == StateSkipped
	case StateCheckShape:
		return to == StateTransform || to == StatePersist
	case StateTransform:
		return to == StatePersist
	case StatePersist:
		return to == StateValidate
	case StateValidate:
		return to == StatePassed || to == StateTransform || to == StateExhaustedRetries
	default:
		return false
	}
}

// ActiveDescription returns the path the next read targets: the working variant
// once one exists, the original before that.
func (d BuildDescription) ActiveDescription() string {
	if d.WorkingPath != "" {
		return d.WorkingPath
	}
	return d.OriginalPath
}
