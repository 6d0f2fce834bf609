// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the stagecraft CLI.
//
// The root command wires configuration, logging and the internal packages
// together; each subcommand exposes one stage of the pipeline on its own
// (analyze, convert, validate, inspect) or the whole pipeline (run).
package cmd
