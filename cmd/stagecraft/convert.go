// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/stagecraft/stagecraft/internal/convert"
	"github.com/stagecraft/stagecraft/internal/manifest"

	"github.com/spf13/cobra"
)

const defaultDockerfile = "Dockerfile"

type convertOptions struct {
	dockerfile  string
	platform    string
	buildConfig string
	bakeFile    string
	maxAttempts int
}

func newConvertCommand(app *App) *cobra.Command {
	var opts convertOptions

	convertCmd := &cobra.Command{
		Use:   "convert <work-root>",
		Short: "Rewrite and validate the Dockerfile of a checked-out repository",
		Long: `Rewrite a Dockerfile as a multi-stage build and validate it.

The original Dockerfile is never modified; the rewrite is written next to it
as <name>-argo<ext>. When --platform is not given, the platform, build
configuration, Dockerfile and bake file are read from the repository's
ViaCBSfile. Paths are relative to <work-root>.

Exit status is 2 when the rewrite never passed validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), app, args[0], opts)
		},
	}

	convertCmd.Flags().StringVarP(&opts.dockerfile, "dockerfile", "f", "", "Dockerfile to convert (default \"Dockerfile\")")
	convertCmd.Flags().StringVarP(&opts.platform, "platform", "p", "", "build platform, e.g. python-pypi")
	convertCmd.Flags().StringVar(&opts.buildConfig, "build-config", "", "buildAs configuration passed to the model")
	convertCmd.Flags().StringVar(&opts.bakeFile, "bake-file", "", "bake file to validate with (default: next to the rewrite)")
	convertCmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "corrective retries after the first validation (default from config)")

	return convertCmd
}

func runConvert(ctx context.Context, app *App, root string, opts convertOptions) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	logger := app.newLogger()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return app.fail(ExitFailure, fmt.Errorf("resolve work root: %w", err))
	}

	req := convert.Request{
		WorkRoot:        absRoot,
		DescriptionPath: opts.dockerfile,
		Platform:        opts.platform,
		BuildConfig:     opts.buildConfig,
		SpecPath:        opts.bakeFile,
		MaxAttempts:     cfg.Retry.MaxAttempts,
	}
	if opts.maxAttempts > 0 {
		req.MaxAttempts = opts.maxAttempts
	}

	if req.Platform == "" {
		an, err := manifest.NewAnalyzer(manifest.WithLogger(logger)).Analyze(absRoot)
		if err != nil {
			return app.fail(ExitFailure, err)
		}
		req.Platform = an.Platform
		if req.BuildConfig == "" {
			req.BuildConfig = an.BuildConfig
		}
		if req.DescriptionPath == "" {
			req.DescriptionPath = an.DockerfilePath
		}
		if req.SpecPath == "" {
			req.SpecPath = an.BakeFilePath
		}
	}
	if req.DescriptionPath == "" {
		req.DescriptionPath = defaultDockerfile
	}

	res, err := app.controller(cfg, logger).Run(ctx, req)
	printConversion(app, &res)
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	if res.State == convert.StateExhaustedRetries {
		return app.fail(ExitValidationFailed, neverValidated(&res))
	}
	return nil
}

func printConversion(app *App, res *convert.Result) {
	w := app.stdout

	var status string
	switch {
	case res.Passed:
		status = SuccessStyle.Render("✓ passed")
	case res.State == convert.StateSkipped:
		status = WarningStyle.Render("skipped")
	default:
		status = ErrorStyle.Render("✗ " + res.State.String())
	}
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Conversion:"), status)

	if res.DerivedPath != "" {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("derived:"), CmdStyle.Render(res.DerivedPath))
	}
	if res.SpecPath != "" {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("bake file:"), CmdStyle.Render(res.SpecPath))
	}
	if res.State != convert.StateSkipped {
		fmt.Fprintf(w, "  %s %d (retries used: %d)\n", SubtitleStyle.Render("validations:"), res.Validations, res.Attempts)
	}
	if !res.Passed && res.LastError != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", WarningStyle.Render("Last validation error:"), res.LastError)
	}

	if app.verbose {
		fmt.Fprintln(w)
		for _, n := range res.Notes {
			fmt.Fprintln(w, VerboseStyle.Render("  "+n))
		}
	}
}
