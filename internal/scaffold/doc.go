// SPDX-License-Identifier: MPL-2.0

// Package scaffold renders the CI workflow and bake file templates into a
// checked-out repository.
//
// Templates use text/template with [[ ]] delimiters so GitHub Actions
// expressions (${{ ... }}) pass through untouched. Files under gha/ are written
// to .github/workflows/ and files under docker/ to the repository root, each
// without its .tpl extension.
package scaffold
