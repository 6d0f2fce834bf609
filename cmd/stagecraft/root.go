// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stagecraft",
		Short: "Convert repository Dockerfiles to validated multi-stage builds",
		Long: TitleStyle.Render("stagecraft") + SubtitleStyle.Render(" - Convert repository Dockerfiles to validated multi-stage builds") + `

stagecraft clones a repository, reads its ViaCBSfile to find the build
platform and Dockerfile, scaffolds a bake file and CI workflow, and asks
a language model to rewrite the Dockerfile as a multi-stage build. Every
rewrite is checked with 'docker buildx bake'; failures are fed back to the
model for a bounded number of corrective retries.

` + SubtitleStyle.Render("Examples:") + `
  stagecraft run https://github.com/acme/service.git
  stagecraft convert ./service --platform python-pypi
  stagecraft validate ./service/docker-argo-bake.hcl
  stagecraft inspect ./service/Dockerfile
  stagecraft config show`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/stagecraft/config.cue)")

	rootCmd.AddCommand(
		newRunCommand(app),
		newConvertCommand(app),
		newValidateCommand(app),
		newAnalyzeCommand(app),
		newInspectCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
