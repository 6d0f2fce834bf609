// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/stagecraft/stagecraft/internal/convert"
	"github.com/stagecraft/stagecraft/internal/manifest"
	"github.com/stagecraft/stagecraft/internal/source"
)

// maxReportDiagnostic caps the validator output quoted in a report.
const maxReportDiagnostic = 2000

// Report describes one pipeline run.
type Report struct {
	Repository string
	// Step is the last step reached; StepDone when every step finished.
	Step       Step
	Checkout   *source.Checkout
	Analysis   *manifest.Analysis
	Scaffolded []string
	Conversion *convert.Result
	// Notes holds the progress notes of every step in order.
	Notes []string
}

func (r *Report) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Converted reports whether a conversion ran and its variant validated.
func (r *Report) Converted() bool {
	return r.Conversion != nil && r.Conversion.Passed
}

// Skipped reports whether the conversion was skipped for lack of a platform.
func (r *Report) Skipped() bool {
	return r.Conversion != nil && r.Conversion.State == convert.StateSkipped
}

// Markdown renders the report for display.
func (r *Report) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# stagecraft report\n\n")
	fmt.Fprintf(&sb, "- **Repository:** `%s`\n", r.Repository)
	fmt.Fprintf(&sb, "- **Status:** %s\n", r.status())
	if r.Checkout != nil {
		fmt.Fprintf(&sb, "- **Clone path:** `%s`\n", r.Checkout.Path)
		if r.Checkout.Head != "" {
			fmt.Fprintf(&sb, "- **Commit:** `%s`\n", shortHash(r.Checkout.Head))
		}
	}

	if a := r.Analysis; a != nil {
		sb.WriteString("\n## Analysis\n\n")
		sb.WriteString("| Field | Value |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Manifest | %s |\n", orNone(a.ManifestPath))
		fmt.Fprintf(&sb, "| Bake file | %s |\n", orNone(a.BakeFilePath))
		fmt.Fprintf(&sb, "| Dockerfile | %s |\n", orNone(a.DockerfilePath))
		fmt.Fprintf(&sb, "| Build platform | %s |\n", orNone(a.Platform))
		fmt.Fprintf(&sb, "| Docker spec | %t |\n", a.HasDockerSpec)
		if a.Python != nil && a.Python.RequiresPython != "" {
			fmt.Fprintf(&sb, "| Python | %s |\n", orNone(a.Python.RequiresPython))
		}
		if a.BuildConfig != "" {
			fmt.Fprintf(&sb, "\nbuildAs configuration:\n\n```\n%s\n```\n", a.BuildConfig)
		}
	}

	if len(r.Scaffolded) > 0 {
		sb.WriteString("\n## Scaffolded files\n\n")
		for _, f := range r.Scaffolded {
			fmt.Fprintf(&sb, "- `%s`\n", f)
		}
	}

	if c := r.Conversion; c != nil {
		sb.WriteString("\n## Dockerfile conversion\n\n")
		fmt.Fprintf(&sb, "- **Result:** %s\n", c.State)
		if c.DerivedPath != "" {
			fmt.Fprintf(&sb, "- **Derived Dockerfile:** `%s`\n", c.DerivedPath)
		}
		if c.State != convert.StateSkipped {
			fmt.Fprintf(&sb, "- **Validations:** %d (retries used: %d)\n", c.Validations, c.Attempts)
		}
		if !c.Passed && c.LastError != "" {
			fmt.Fprintf(&sb, "\nLast validation error:\n\n```\n%s\n```\n", clip(c.LastError, maxReportDiagnostic))
		}
	}

	if len(r.Notes) > 0 {
		sb.WriteString("\n## Log\n\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&sb, "- %s\n", strings.ReplaceAll(n, "\n", " "))
		}
	}

	return sb.String()
}

func (r *Report) status() string {
	switch {
	case r.Step != StepDone:
		return fmt.Sprintf("failed at %s", r.Step)
	case r.Skipped():
		return "completed, conversion skipped"
	case r.Converted():
		return "completed, Dockerfile validated"
	default:
		return "completed, validation never passed"
	}
}

func orNone(s string) string {
	if s == "" {
		return "_none_"
	}
	return "`" + s + "`"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
