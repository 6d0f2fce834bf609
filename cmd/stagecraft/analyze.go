// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/stagecraft/stagecraft/internal/manifest"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <work-root>",
		Short: "Read a repository's ViaCBSfile and locate its Dockerfile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), app, args[0])
		},
	}
}

func runAnalyze(ctx context.Context, app *App, root string) error {
	if _, err := app.loadConfig(ctx); err != nil {
		return app.fail(ExitFailure, err)
	}

	an, err := manifest.NewAnalyzer(manifest.WithLogger(app.newLogger())).Analyze(root)
	if err != nil {
		return app.fail(ExitFailure, err)
	}

	w := app.stdout
	field := func(name, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(none)")
		} else {
			value = CmdStyle.Render(value)
		}
		fmt.Fprintf(w, "  %-16s %s\n", name+":", value)
	}

	fmt.Fprintln(w, TitleStyle.Render("Analysis of "+root))
	field("manifest", an.ManifestPath)
	field("bake file", an.BakeFilePath)
	field("bake target", an.BakeTarget)
	field("dockerfile", an.DockerfilePath)
	field("platform", an.Platform)
	field("docker spec", fmt.Sprintf("%t", an.HasDockerSpec))
	if an.Python != nil {
		field("python", an.Python.RequiresPython)
	}
	if an.BuildConfig != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", SubtitleStyle.Render("buildAs configuration:"), an.BuildConfig)
	}

	if app.verbose {
		fmt.Fprintln(w)
		for _, n := range an.Notes {
			fmt.Fprintln(w, VerboseStyle.Render("  "+n))
		}
	}
	return nil
}
