// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"errors"

	"github.com/stagecraft/stagecraft/internal/validate"
)

const (
	OutcomePassed OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

type (
	// OutcomeKind tags an Outcome.
	OutcomeKind int

	// Outcome is the result of one validation, as seen by the controller.
	Outcome struct {
		Kind OutcomeKind
		// Diagnostics is set for retryable failures.
		Diagnostics string
		// Err is set for fatal failures.
		Err error
	}
)

// Passed is a successful validation.
func Passed() Outcome { return Outcome{Kind: OutcomePassed} }

// RetryableFailure is a validation failure another rewrite may fix.
func RetryableFailure(diagnostics string) Outcome {
	return Outcome{Kind: OutcomeRetryable, Diagnostics: diagnostics}
}

// FatalFailure ends the run without further attempts.
func FatalFailure(err error) Outcome { return Outcome{Kind: OutcomeFatal, Err: err} }

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePassed:
		return "passed"
	case OutcomeRetryable:
		return "retryable failure"
	default:
		return "fatal failure"
	}
}

// classify maps a validator result onto an Outcome. A missing bake file is the
// only validator error that is not retryable besides cancellation, and both are
// surfaced as fatal.
func classify(res validate.Result, err error) Outcome {
	switch {
	case err != nil:
		return FatalFailure(err)
	case res.Passed:
		return Passed()
	default:
		return RetryableFailure(res.Diagnostics)
	}
}

// isSpecMissing reports whether an outcome was caused by a missing bake file.
func isSpecMissing(o Outcome) bool {
	return o.Kind == OutcomeFatal && errors.Is(o.Err, validate.ErrSpecNotFound)
}
