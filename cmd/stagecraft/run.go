// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"

	"github.com/stagecraft/stagecraft/internal/convert"
	"github.com/stagecraft/stagecraft/internal/issue"

	"github.com/spf13/cobra"
)

// errNeverValidated is reported when every rewrite failed validation.
var errNeverValidated = errors.New("converted Dockerfile never passed validation")

type runOptions struct {
	workspace   string
	maxAttempts int
	plain       bool
}

func newRunCommand(app *App) *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run <repository-url>",
		Short: "Clone, analyze, scaffold and convert a repository",
		Long: `Clone a repository and run every stage on it.

The ViaCBSfile at the repository root names the build platform and the bake
file. A bake file and GitHub Actions workflow are scaffolded next to the
Dockerfile, and the Dockerfile is rewritten as <name>-argo<ext> and validated
with 'docker buildx bake'. A Markdown report is printed at the end.

Exit status is 2 when the converted Dockerfile never passed validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), app, args[0], opts)
		},
	}

	runCmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "directory repositories are cloned into (default from config)")
	runCmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "corrective retries after the first validation (default from config)")
	runCmd.Flags().BoolVar(&opts.plain, "plain", false, "print the report as raw Markdown")

	return runCmd
}

func runPipeline(ctx context.Context, app *App, rawURL string, opts runOptions) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	if opts.workspace != "" {
		cfg.WorkspaceDir = opts.workspace
	}
	if opts.maxAttempts > 0 {
		cfg.Retry.MaxAttempts = opts.maxAttempts
	}

	logger := app.newLogger()
	rep, runErr := app.pipeline(cfg, logger).Run(ctx, rawURL)
	if err := printMarkdown(app.stdout, rep.Markdown(), opts.plain); err != nil {
		logger.Warn("could not render report", "error", err)
	}
	if runErr != nil {
		return app.fail(ExitFailure, runErr)
	}

	if c := rep.Conversion; c != nil && c.State == convert.StateExhaustedRetries {
		return app.fail(ExitValidationFailed, neverValidated(c))
	}
	return nil
}

func neverValidated(res *convert.Result) error {
	return issue.NewErrorContext().
		WithOperation("validate converted Dockerfile").
		WithResource(res.DerivedPath).
		WithSuggestion("Read the last validation error in the report and fix the Dockerfile by hand").
		WithSuggestion("Raise retry.max_attempts or pass --max-attempts to give the model more tries").
		WithIssue(issue.RetriesExhaustedId).
		Wrap(errNeverValidated).
		BuildError()
}
