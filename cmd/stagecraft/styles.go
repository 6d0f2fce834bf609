// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Terminal palette. Hex values are chosen for dark backgrounds.
const (
	purple = lipgloss.Color("#7C3AED")
	gray   = lipgloss.Color("#6B7280")
	silver = lipgloss.Color("#9CA3AF")
	green  = lipgloss.Color("#10B981")
	red    = lipgloss.Color("#EF4444")
	amber  = lipgloss.Color("#F59E0B")
	blue   = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle renders command headings.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(purple)
	// SubtitleStyle renders field labels and secondary text.
	SubtitleStyle = lipgloss.NewStyle().Foreground(gray)
	// VerboseStyle renders notes and details shown with --verbose.
	VerboseStyle = lipgloss.NewStyle().Foreground(silver)

	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(red)
	WarningStyle = lipgloss.NewStyle().Foreground(amber)

	// CmdStyle renders paths, URLs and shell commands.
	CmdStyle = lipgloss.NewStyle().Foreground(blue)
)
