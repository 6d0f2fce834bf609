// SPDX-License-Identifier: MPL-2.0

// Package convert drives the bounded transform-and-validate loop that turns a
// repository's Dockerfile into a validated multi-stage variant.
//
// The loop is an explicit state machine:
//
//	Init -> CheckShape -> (Transform | Persist) -> Persist -> Validate
//	Validate -> Passed | Transform (retry) | ExhaustedRetries
//	any -> FatalError
//
// A Dockerfile that is already multi-stage is copied verbatim on the first attempt.
// Once a validation fails, every later attempt rewrites the derived variant with the
// validator's diagnostics attached. The derived variant (Dockerfile-argo) is the
// only file ever written; the original is never modified.
package convert
