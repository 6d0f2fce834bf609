// SPDX-License-Identifier: MPL-2.0

// Package validate checks a converted Dockerfile by running `docker buildx bake`
// against the bake file that sits next to it.
//
// A build that fails, times out, or cannot start because the docker binary is
// missing is reported as a failed Result rather than an error, so the caller can
// feed the diagnostics back into another rewrite. Errors are reserved for problems
// no rewrite can fix: a missing bake file or a canceled context.
package validate
