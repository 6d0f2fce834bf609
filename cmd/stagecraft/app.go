// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/convert"
	"github.com/stagecraft/stagecraft/internal/manifest"
	"github.com/stagecraft/stagecraft/internal/pipeline"
	"github.com/stagecraft/stagecraft/internal/scaffold"
	"github.com/stagecraft/stagecraft/internal/source"
	"github.com/stagecraft/stagecraft/internal/transform"
	"github.com/stagecraft/stagecraft/internal/validate"

	"github.com/charmbracelet/log"
)

type (
	// App is the composition root of the CLI. Command handlers receive an App
	// and build the services they need from the loaded configuration.
	App struct {
		Config      config.Provider
		Transformer transform.Transformer
		Validator   convert.Validator
		stdout      io.Writer
		stderr      io.Writer

		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults, or built from configuration when a
	// command runs.
	Dependencies struct {
		Config      config.Provider
		Transformer transform.Transformer
		Validator   convert.Validator
		Stdout      io.Writer
		Stderr      io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:      deps.Config,
		Transformer: deps.Transformer,
		Validator:   deps.Validator,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}
}

// loadConfig loads the configuration named by --config, or the default one.
// The config's ui.verbose turns on verbose output when the flag was not given.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	return cfg, nil
}

func (a *App) newLogger() *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
	})
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func (a *App) transformer(cfg *config.Config, logger *log.Logger) transform.Transformer {
	if a.Transformer != nil {
		return a.Transformer
	}
	return transform.NewGeminiClient(
		transform.WithBaseURL(cfg.Transformer.Endpoint),
		transform.WithModel(cfg.Transformer.Model),
		transform.WithAPIKey(os.Getenv(cfg.Transformer.APIKeyEnv)),
		transform.WithTemperature(cfg.Transformer.Temperature),
		transform.WithTimeout(cfg.Transformer.Timeout),
		transform.WithLogger(logger),
	)
}

func (a *App) validator(cfg *config.Config, logger *log.Logger) convert.Validator {
	if a.Validator != nil {
		return a.Validator
	}
	return a.runner(cfg, logger)
}

func (a *App) runner(cfg *config.Config, logger *log.Logger) *validate.Runner {
	return validate.NewRunner(cfg.Validator.Binary,
		validate.WithPlatform(cfg.Validator.Platform),
		validate.WithTimeout(cfg.Validator.Timeout),
		validate.WithLogger(logger),
	)
}

func (a *App) controller(cfg *config.Config, logger *log.Logger) *convert.Controller {
	return convert.New(
		a.transformer(cfg, logger),
		a.validator(cfg, logger),
		convert.WithSpecFile(cfg.Validator.SpecFile),
		convert.WithLogger(logger),
	)
}

func (a *App) pipeline(cfg *config.Config, logger *log.Logger) *pipeline.Pipeline {
	cloner := source.NewCloner(cfg.WorkspaceDir,
		source.WithTimeout(cfg.Clone.Timeout),
		source.WithAttempts(cfg.Clone.Attempts),
		source.WithLogger(logger),
	)

	scaffoldOpts := []scaffold.Option{scaffold.WithLogger(logger)}
	if cfg.Scaffold.TemplatesDir != "" {
		scaffoldOpts = append(scaffoldOpts, scaffold.WithTemplatesDir(cfg.Scaffold.TemplatesDir))
	}

	return pipeline.New(
		cloner,
		manifest.NewAnalyzer(manifest.WithLogger(logger)),
		scaffold.New(scaffoldOpts...),
		a.controller(cfg, logger),
		pipeline.WithMaxAttempts(cfg.Retry.MaxAttempts),
		pipeline.WithLogger(logger),
	)
}
