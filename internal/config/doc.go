// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/stagecraft/config.cue (XDG on Linux,
// ~/Library/Application Support on macOS, %APPDATA% on Windows), or from ./config.cue
// when no user file exists. The file is validated against the embedded #Config schema
// (config_schema.cue) before being merged over the defaults. STAGECRAFT_* environment
// variables override both, with dots in keys replaced by underscores.
package config
