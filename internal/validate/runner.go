// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stagecraft/stagecraft/internal/issue"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// DefaultBinary is the executable that provides buildx.
	DefaultBinary = "docker"
	// DefaultPlatform is forced on the bake "app" target.
	DefaultPlatform = "linux/amd64"
	// DefaultTimeout bounds a single validation run.
	DefaultTimeout = 300 * time.Second

	// MissingToolMessage is the diagnostic reported when buildx cannot be started.
	MissingToolMessage = "Docker buildx not found. Please ensure Docker is installed and buildx is available."

	// waitDelay bounds how long Wait keeps reading pipes after the process is
	// killed or exits.
	waitDelay = 2 * time.Second
)

// ErrSpecNotFound is returned when the bake file to validate against does not exist.
var ErrSpecNotFound = errors.New("validation spec not found")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures a Runner.
	Option func(*Runner)

	// Runner runs `docker buildx bake` for a bake file.
	Runner struct {
		binaryPath  string
		platform    string
		timeout     time.Duration
		execCommand ExecCommandFunc
		logger      *log.Logger
	}

	// Result is the outcome of one validation run.
	Result struct {
		// Passed is true when the bake exited with status 0.
		Passed bool
		// Diagnostics is stderr, or stdout when stderr was empty, or a fixed
		// message for timeouts and a missing binary.
		Diagnostics string
		// ExitCode is the process exit status, -1 when the process never finished.
		ExitCode int
		// TimedOut is set when the run was cut off by the runner's timeout.
		TimedOut bool
		// ToolMissing is set when the binary could not be found or started.
		ToolMissing bool
		// Duration is the wall time of the run.
		Duration time.Duration
	}
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *Runner) {
		r.execCommand = fn
	}
}

// WithBinaryPath bypasses PATH lookup and runs the given executable.
func WithBinaryPath(path string) Option {
	return func(r *Runner) {
		r.binaryPath = path
	}
}

// WithPlatform sets the platform passed as app.platform.
func WithPlatform(platform string) Option {
	return func(r *Runner) {
		if platform != "" {
			r.platform = platform
		}
	}
}

// WithTimeout sets the per-run time limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner for binary, resolved through PATH. An unresolvable
// binary is not an error here; every Validate call then reports ToolMissing.
func NewRunner(binary string, opts ...Option) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	path, _ := exec.LookPath(binary)

	r := &Runner{
		binaryPath:  path,
		platform:    DefaultPlatform,
		timeout:     DefaultTimeout,
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BinaryPath returns the resolved executable, empty when it was not found.
func (r *Runner) BinaryPath() string {
	return r.binaryPath
}

// Args returns the command line (without the binary) used to validate specFile.
func (r *Runner) Args(specFile string) []string {
	return []string{"buildx", "bake", "-f", specFile, "--set", "app.platform=" + r.platform}
}

// CommandLine renders the validation command for specFile as a line that can
// be pasted into a shell.
func (r *Runner) CommandLine(specFile string) string {
	binary := r.binaryPath
	if binary == "" {
		binary = DefaultBinary
	}
	words := append([]string{binary}, r.Args(specFile)...)
	for i, w := range words {
		if q, err := syntax.Quote(w, syntax.LangBash); err == nil {
			words[i] = q
		}
	}
	return strings.Join(words, " ")
}

// Available reports whether buildx answers `docker buildx version`.
func (r *Runner) Available(ctx context.Context) bool {
	_, err := r.Version(ctx)
	return err == nil
}

// Version returns the output of `docker buildx version`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	if r.binaryPath == "" {
		return "", errors.New(MissingToolMessage)
	}
	var out bytes.Buffer
	cmd := r.execCommand(ctx, r.binaryPath, "buildx", "version")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to get buildx version: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

// Validate runs the bake for specPath from the directory that contains it.
func (r *Runner) Validate(ctx context.Context, specPath string) (Result, error) {
	info, err := os.Stat(specPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Result{ExitCode: -1}, fmt.Errorf("failed to stat bake file: %w", err)
	}
	if err != nil || info.IsDir() {
		return Result{ExitCode: -1}, issue.NewErrorContext().
			WithOperation("validate build").
			WithResource(specPath).
			WithSuggestion("Scaffold the bake file with 'stagecraft run' or pass --bake-file").
			WithIssue(issue.BakeFileNotFoundId).
			Wrap(fmt.Errorf("%w: %s", ErrSpecNotFound, specPath)).
			BuildError()
	}

	if r.binaryPath == "" {
		r.logger.Warn("buildx not available", "binary", DefaultBinary)
		return Result{ExitCode: -1, ToolMissing: true, Diagnostics: MissingToolMessage}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.Args(filepath.Base(specPath))
	cmd := r.execCommand(runCtx, r.binaryPath, args...)
	cmd.Dir = filepath.Dir(specPath)
	cmd.WaitDelay = waitDelay
	killTreeOnCancel(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running validator", "dir", cmd.Dir, "command", r.CommandLine(filepath.Base(specPath)))
	start := time.Now()
	runErr := cmd.Run()
	res := Result{Duration: time.Since(start)}

	switch {
	case runErr == nil:
		res.Passed = true
		return res, nil
	case ctx.Err() != nil:
		return Result{ExitCode: -1, Duration: res.Duration}, fmt.Errorf("validation canceled: %w", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.TimedOut = true
		res.Diagnostics = TimeoutMessage(r.timeout)
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Diagnostics = stderr.String()
		if strings.TrimSpace(res.Diagnostics) == "" {
			res.Diagnostics = stdout.String()
		}
		return res, nil
	}

	if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
		res.ExitCode = -1
		res.ToolMissing = true
		res.Diagnostics = MissingToolMessage
		return res, nil
	}

	return Result{ExitCode: -1, Duration: res.Duration}, fmt.Errorf("command %s %v failed: %w", r.binaryPath, args, runErr)
}

// TimeoutMessage is the diagnostic reported when a run exceeds d.
func TimeoutMessage(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "Dockerfile validation timed out after 1 minute"
		}
		return fmt.Sprintf("Dockerfile validation timed out after %d minutes", minutes)
	}
	return fmt.Sprintf("Dockerfile validation timed out after %s", d)
}
