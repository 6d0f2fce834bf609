// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stagecraft/stagecraft/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "stagecraft"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (STAGECRAFT_RETRY_MAX_ATTEMPTS).
	EnvPrefix = "STAGECRAFT"

	// maxConfigFileSize bounds how much of a config file is read.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the stagecraft directory under the user's configuration
// root (os.UserConfigDir), or the directory set by SetConfigDirOverride.
//
//nolint:revive // config.Dir would read ambiguously at call sites
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(root, AppName), nil
}

// loadWithOptions performs option-driven config loading without touching
// package-level state beyond the test override.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'stagecraft config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check STAGECRAFT_* environment variables for empty or out-of-range values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("workspace_dir", defaults.WorkspaceDir)
	v.SetDefault("transformer.endpoint", defaults.Transformer.Endpoint)
	v.SetDefault("transformer.model", defaults.Transformer.Model)
	v.SetDefault("transformer.api_key_env", defaults.Transformer.APIKeyEnv)
	v.SetDefault("transformer.temperature", defaults.Transformer.Temperature)
	v.SetDefault("transformer.timeout", defaults.Transformer.Timeout)
	v.SetDefault("validator.binary", defaults.Validator.Binary)
	v.SetDefault("validator.platform", defaults.Validator.Platform)
	v.SetDefault("validator.timeout", defaults.Validator.Timeout)
	v.SetDefault("validator.spec_file", defaults.Validator.SpecFile)
	v.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("clone.timeout", defaults.Clone.Timeout)
	v.SetDefault("clone.attempts", defaults.Clone.Attempts)
	v.SetDefault("scaffold.templates_dir", defaults.Scaffold.TemplatesDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// resolveConfigPath picks the file to load: the explicit --config path, then the
// config directory, then ./config.cue. An empty result means defaults only.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'stagecraft config init' to write a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	name := ConfigFileName + "." + ConfigFileExt
	if cuePath := filepath.Join(cfgDir, name); fileExists(cuePath) {
		return cuePath, nil
	}
	if fileExists(name) {
		return name, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge keeps defaults for unset keys and lets env overrides win.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens a CUE error list into "<file>: <path>: <message>" lines.
func formatCUEError(err error, filePath string) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		path := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, path+": "+msg)
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file if none exists and returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// stagecraft configuration\n\n")

	fmt.Fprintf(&sb, "workspace_dir: %q\n", cfg.WorkspaceDir)

	sb.WriteString("\ntransformer: {\n")
	fmt.Fprintf(&sb, "\tendpoint:    %q\n", cfg.Transformer.Endpoint)
	fmt.Fprintf(&sb, "\tmodel:       %q\n", cfg.Transformer.Model)
	fmt.Fprintf(&sb, "\tapi_key_env: %q\n", cfg.Transformer.APIKeyEnv)
	fmt.Fprintf(&sb, "\ttemperature: %v\n", cfg.Transformer.Temperature)
	fmt.Fprintf(&sb, "\ttimeout:     %q\n", cfg.Transformer.Timeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\nvalidator: {\n")
	fmt.Fprintf(&sb, "\tbinary:    %q\n", cfg.Validator.Binary)
	fmt.Fprintf(&sb, "\tplatform:  %q\n", cfg.Validator.Platform)
	fmt.Fprintf(&sb, "\ttimeout:   %q\n", cfg.Validator.Timeout.String())
	fmt.Fprintf(&sb, "\tspec_file: %q\n", cfg.Validator.SpecFile)
	sb.WriteString("}\n")

	sb.WriteString("\nretry: {\n")
	fmt.Fprintf(&sb, "\tmax_attempts: %d\n", cfg.Retry.MaxAttempts)
	sb.WriteString("}\n")

	sb.WriteString("\nclone: {\n")
	fmt.Fprintf(&sb, "\ttimeout:  %q\n", cfg.Clone.Timeout.String())
	fmt.Fprintf(&sb, "\tattempts: %d\n", cfg.Clone.Attempts)
	sb.WriteString("}\n")

	if cfg.Scaffold.TemplatesDir != "" {
		sb.WriteString("\nscaffold: {\n")
		fmt.Fprintf(&sb, "\ttemplates_dir: %q\n", cfg.Scaffold.TemplatesDir)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
