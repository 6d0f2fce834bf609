// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation that failed, the resource involved and
// remediation hints. Issue holds longer Markdown guides for the failures users hit
// most often (missing manifest, missing bake file, validator not installed), rendered
// with glamour by the CLI.
package issue
