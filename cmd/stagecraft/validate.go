// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stagecraft/stagecraft/internal/issue"
	"github.com/stagecraft/stagecraft/internal/validate"

	"github.com/spf13/cobra"
)

// errValidationFailed is reported when a bake run did not pass.
var errValidationFailed = errors.New("docker buildx bake failed")

func newValidateCommand(app *App) *cobra.Command {
	var platform string

	validateCmd := &cobra.Command{
		Use:   "validate <bake-file>",
		Short: "Run 'docker buildx bake' against a bake file",
		Long: `Run 'docker buildx bake' against a bake file from the directory that
contains it, with the "app" target's platform forced.

Exit status is 2 when the bake fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), app, args[0], platform)
		},
	}

	validateCmd.Flags().StringVarP(&platform, "platform", "p", "", "platform for the app target (default from config)")

	return validateCmd
}

func runValidate(ctx context.Context, app *App, bakeFile, platform string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	if platform != "" {
		cfg.Validator.Platform = platform
	}

	abs, err := filepath.Abs(bakeFile)
	if err != nil {
		return app.fail(ExitFailure, fmt.Errorf("resolve bake file: %w", err))
	}

	logger := app.newLogger()
	if app.Validator == nil && app.verbose {
		fmt.Fprintln(app.stdout, VerboseStyle.Render("$ "+app.runner(cfg, logger).CommandLine(filepath.Base(abs))))
	}

	res, err := app.validator(cfg, logger).Validate(ctx, abs)
	if err != nil {
		return app.fail(ExitFailure, err)
	}

	if res.Passed {
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓ bake passed:"), CmdStyle.Render(bakeFile))
		return nil
	}

	fmt.Fprintf(app.stdout, "%s %s\n", ErrorStyle.Render("✗ bake failed:"), CmdStyle.Render(bakeFile))
	if diag := strings.TrimSpace(res.Diagnostics); diag != "" {
		fmt.Fprintln(app.stdout, diag)
	}
	return app.fail(ExitValidationFailed, validationError(bakeFile, res))
}

func validationError(bakeFile string, res validate.Result) error {
	ec := issue.NewErrorContext().
		WithOperation("validate build").
		WithResource(bakeFile)
	switch {
	case res.ToolMissing:
		ec = ec.WithIssue(issue.ValidatorNotFoundId).
			WithSuggestion("Install Docker with the buildx plugin, or set validator.binary")
	case res.TimedOut:
		ec = ec.WithIssue(issue.ValidationTimedOutId).
			WithSuggestion("Raise validator.timeout in the configuration")
	default:
		ec = ec.WithSuggestion("Read the bake output above for the failing step")
	}
	return ec.Wrap(errValidationFailed).BuildError()
}
