// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTransformerEndpoint is the base URL of the Gemini REST API.
	DefaultTransformerEndpoint = "https://generativelanguage.googleapis.com"
	// DefaultTransformerModel is the model asked to rewrite Dockerfiles.
	DefaultTransformerModel = "gemini-2.5-flash-lite"
	// DefaultAPIKeyEnv names the environment variable holding the API key.
	DefaultAPIKeyEnv = "GOOGLE_API_KEY"
	// DefaultValidatorPlatform is the platform forced on the bake "app" target.
	DefaultValidatorPlatform = "linux/amd64"
	// DefaultSpecFile is the bake file expected next to the derived Dockerfile.
	DefaultSpecFile = "docker-argo-bake.hcl"
	// DefaultMaxAttempts is the number of corrective retries after the first validation.
	DefaultMaxAttempts = 2
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidDuration is returned when a timeout is zero or negative.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidAttempts is returned when an attempt budget is out of range.
	ErrInvalidAttempts = errors.New("invalid attempt budget")
	// ErrEmptyValue is returned when a required string setting is blank.
	ErrEmptyValue = errors.New("empty value")
)

type (
	// Config holds the application configuration.
	Config struct {
		// WorkspaceDir is where repositories are cloned.
		WorkspaceDir string `json:"workspace_dir" mapstructure:"workspace_dir"`
		// Transformer configures the language model used to rewrite Dockerfiles.
		Transformer TransformerConfig `json:"transformer" mapstructure:"transformer"`
		// Validator configures the docker buildx bake check.
		Validator ValidatorConfig `json:"validator" mapstructure:"validator"`
		// Retry configures the transform-and-validate loop.
		Retry RetryConfig `json:"retry" mapstructure:"retry"`
		// Clone configures repository cloning.
		Clone CloneConfig `json:"clone" mapstructure:"clone"`
		// Scaffold configures template rendering.
		Scaffold ScaffoldConfig `json:"scaffold" mapstructure:"scaffold"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// TransformerConfig configures the rewrite service.
	TransformerConfig struct {
		Endpoint    string        `json:"endpoint" mapstructure:"endpoint"`
		Model       string        `json:"model" mapstructure:"model"`
		APIKeyEnv   string        `json:"api_key_env" mapstructure:"api_key_env"`
		Temperature float64       `json:"temperature" mapstructure:"temperature"`
		Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	// ValidatorConfig configures the build validator.
	ValidatorConfig struct {
		Binary   string        `json:"binary" mapstructure:"binary"`
		Platform string        `json:"platform" mapstructure:"platform"`
		Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
		SpecFile string        `json:"spec_file" mapstructure:"spec_file"`
	}

	// RetryConfig configures the retry budget.
	RetryConfig struct {
		MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
	}

	// CloneConfig configures repository cloning.
	CloneConfig struct {
		Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
		Attempts int           `json:"attempts" mapstructure:"attempts"`
	}

	// ScaffoldConfig configures template rendering.
	ScaffoldConfig struct {
		// TemplatesDir replaces the embedded templates when set.
		TemplatesDir string `json:"templates_dir" mapstructure:"templates_dir"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// FieldError describes a single invalid setting.
	FieldError struct {
		Key string
		Err error
	}
)

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Validate checks constraints the loader cannot express through the schema alone,
// such as values coming from STAGECRAFT_* environment overrides.
func (c Config) Validate() error {
	var errs []error
	addIf := func(cond bool, key string, err error) {
		if cond {
			errs = append(errs, &FieldError{Key: key, Err: err})
		}
	}

	addIf(strings.TrimSpace(c.WorkspaceDir) == "", "workspace_dir", ErrEmptyValue)
	addIf(strings.TrimSpace(c.Transformer.Model) == "", "transformer.model", ErrEmptyValue)
	addIf(c.Transformer.Timeout <= 0, "transformer.timeout", ErrInvalidDuration)
	addIf(strings.TrimSpace(c.Validator.Binary) == "", "validator.binary", ErrEmptyValue)
	addIf(strings.TrimSpace(c.Validator.SpecFile) == "", "validator.spec_file", ErrEmptyValue)
	addIf(c.Validator.Timeout <= 0, "validator.timeout", ErrInvalidDuration)
	addIf(c.Retry.MaxAttempts < 1, "retry.max_attempts", ErrInvalidAttempts)
	addIf(c.Clone.Timeout <= 0, "clone.timeout", ErrInvalidDuration)
	addIf(c.Clone.Attempts < 1, "clone.attempts", ErrInvalidAttempts)

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		WorkspaceDir: "workspace",
		Transformer: TransformerConfig{
			Endpoint:    DefaultTransformerEndpoint,
			Model:       DefaultTransformerModel,
			APIKeyEnv:   DefaultAPIKeyEnv,
			Temperature: 0.1,
			Timeout:     2 * time.Minute,
		},
		Validator: ValidatorConfig{
			Binary:   "docker",
			Platform: DefaultValidatorPlatform,
			Timeout:  300 * time.Second,
			SpecFile: DefaultSpecFile,
		},
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
		},
		Clone: CloneConfig{
			Timeout:  5 * time.Minute,
			Attempts: 3,
		},
	}
}
