// SPDX-License-Identifier: MPL-2.0

// Package artifact reads and writes build descriptions inside a repository checkout.
//
// All paths handed to a Store are relative to its root and are resolved with
// securejoin, so a path (or a symlink inside the checkout) can never reach a file
// outside the root.
package artifact
