// SPDX-License-Identifier: MPL-2.0

// Package source checks repository URLs and clones repositories into the
// workspace with go-git, retrying transient network failures.
package source
