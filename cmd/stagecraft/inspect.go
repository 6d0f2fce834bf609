// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/stagecraft/stagecraft/internal/shape"

	"github.com/spf13/cobra"
)

func newInspectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dockerfile>",
		Short: "Show the build stages of a Dockerfile",
		Long: `Show whether a Dockerfile is already multi-stage and list its stages.

A Dockerfile with more than one FROM line is left unchanged by 'convert'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(app, args[0])
		},
	}
}

func runInspect(app *App, dockerfile string) error {
	data, err := os.ReadFile(dockerfile)
	if err != nil {
		return app.fail(ExitFailure, fmt.Errorf("read dockerfile: %w", err))
	}
	text := string(data)
	w := app.stdout

	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Dockerfile:"), CmdStyle.Render(dockerfile))
	if shape.IsMultiStage(text) {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("shape:"), SuccessStyle.Render("multi-stage"))
	} else {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("shape:"), WarningStyle.Render("single-stage"))
	}

	stages, err := shape.Stages(text)
	if err != nil {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("stages:"), VerboseStyle.Render(err.Error()))
		return nil
	}
	fmt.Fprintf(w, "  %s %d\n", SubtitleStyle.Render("stages:"), len(stages))
	for _, st := range stages {
		line := fmt.Sprintf("    %d. %s", st.Index+1, st.BaseImage)
		if st.Name != "" {
			line += " AS " + st.Name
		}
		if st.Platform != "" {
			line += " (platform " + st.Platform + ")"
		}
		fmt.Fprintf(w, "%s %s\n", line, VerboseStyle.Render(fmt.Sprintf("line %d", st.Line)))
	}
	return nil
}
