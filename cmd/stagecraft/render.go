// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/stagecraft/stagecraft/internal/issue"

	"github.com/charmbracelet/glamour"
)

// markdownWidth is the word-wrap width of rendered reports.
const markdownWidth = 100

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// explain prints the suggestions attached to err. In verbose mode the full
// error chain and the long-form issue guide follow.
func (a *App) explain(err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		if a.verbose {
			fmt.Fprintln(a.stderr, VerboseStyle.Render(err.Error()))
		}
		return
	}

	if a.verbose {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, true))
		if guide := ae.Guide(); guide != nil {
			if rendered, rerr := guide.Render("dark"); rerr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
		return
	}

	for _, s := range ae.Suggestions {
		fmt.Fprintln(a.stderr, WarningStyle.Render("  • ")+s)
	}
}

// fail explains err and returns it wrapped with the exit code.
func (a *App) fail(code int, err error) error {
	a.explain(err)
	return &ExitError{Code: code, Err: err}
}

// printMarkdown writes md to w, rendered for the terminal unless plain is set.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
