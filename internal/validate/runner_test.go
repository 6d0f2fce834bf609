// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stagecraft/stagecraft/internal/issue"
)

func writeSpec(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-argo-bake.hcl")
	if err := os.WriteFile(path, []byte("target \"app\" {\n  dockerfile = \"Dockerfile-argo\"\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFakeRunner(t *testing.T, f *fakeBuildx, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithBinaryPath("docker"), WithExecCommand(f.command)}, opts...)
	return NewRunner("docker", opts...)
}

func TestRunner_Args(t *testing.T) {
	t.Parallel()

	r := NewRunner("docker", WithBinaryPath("docker"))
	got := strings.Join(r.Args("docker-argo-bake.hcl"), " ")
	want := "buildx bake -f docker-argo-bake.hcl --set app.platform=linux/amd64"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}

	r = NewRunner("docker", WithBinaryPath("docker"), WithPlatform("linux/arm64"))
	if !strings.HasSuffix(strings.Join(r.Args("x.hcl"), " "), "app.platform=linux/arm64") {
		t.Error("WithPlatform() not applied")
	}
}

func TestRunner_CommandLine(t *testing.T) {
	t.Parallel()

	r := NewRunner("docker", WithBinaryPath("docker"))
	got := r.CommandLine("my bake.hcl")
	if !strings.HasPrefix(got, "docker buildx bake -f ") {
		t.Errorf("CommandLine() = %q", got)
	}
	if !strings.Contains(got, "'my bake.hcl'") {
		t.Errorf("CommandLine() = %q, spec file should be quoted", got)
	}
}

func TestRunner_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exitCode int
		stdout   string
		stderr   string
		wantPass bool
		wantDiag string
		wantExit int
	}{
		{
			name:     "exit zero passes",
			stdout:   "#1 DONE 0.1s",
			wantPass: true,
		},
		{
			name:     "stderr preferred",
			exitCode: 1,
			stdout:   "building",
			stderr:   "ERROR: failed to solve: COPY failed",
			wantDiag: "ERROR: failed to solve: COPY failed",
			wantExit: 1,
		},
		{
			name:     "stdout when stderr empty",
			exitCode: 17,
			stdout:   "target app not found",
			wantDiag: "target app not found",
			wantExit: 17,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec := writeSpec(t)
			fake := &fakeBuildx{exitCode: tt.exitCode, stdout: tt.stdout, stderr: tt.stderr}
			r := newFakeRunner(t, fake)

			res, err := r.Validate(context.Background(), spec)
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if res.Passed != tt.wantPass {
				t.Errorf("Passed = %v, want %v", res.Passed, tt.wantPass)
			}
			if res.Diagnostics != tt.wantDiag {
				t.Errorf("Diagnostics = %q, want %q", res.Diagnostics, tt.wantDiag)
			}
			if res.ExitCode != tt.wantExit {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.wantExit)
			}

			fake.assertCalls(t, 1)
			fake.assertArgs(t, "buildx", "bake", "-f", "docker-argo-bake.hcl", "--set", "app.platform=linux/amd64")
		})
	}
}

func TestRunner_RunsInSpecDirectory(t *testing.T) {
	t.Parallel()

	spec := writeSpec(t)
	fake := &fakeBuildx{exitCode: 1, printDir: true}
	r := newFakeRunner(t, fake)

	res, err := r.Validate(context.Background(), spec)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	want, _ := filepath.EvalSymlinks(filepath.Dir(spec))
	got, _ := filepath.EvalSymlinks(res.Diagnostics)
	if got != want {
		t.Errorf("validator ran in %q, want %q", res.Diagnostics, filepath.Dir(spec))
	}
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()

	spec := writeSpec(t)
	fake := &fakeBuildx{delay: 5 * time.Second}
	r := newFakeRunner(t, fake, WithTimeout(100*time.Millisecond))

	res, err := r.Validate(context.Background(), spec)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if res.Passed || !res.TimedOut {
		t.Errorf("result = %+v, want timed out failure", res)
	}
	if !strings.HasPrefix(res.Diagnostics, "Dockerfile validation timed out after") {
		t.Errorf("Diagnostics = %q", res.Diagnostics)
	}
}

func TestRunner_TimeoutStopsChildProcesses(t *testing.T) {
	t.Parallel()

	spec := writeSpec(t)
	fake := &fakeBuildx{delay: 20 * time.Second, childDelay: 20 * time.Second}
	r := newFakeRunner(t, fake, WithTimeout(200*time.Millisecond))

	start := time.Now()
	res, err := r.Validate(context.Background(), spec)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if !res.TimedOut || res.Passed {
		t.Errorf("result = %+v, want timed out failure", res)
	}
	if limit := 200*time.Millisecond + waitDelay + 3*time.Second; elapsed > limit {
		t.Errorf("Validate() returned after %s, want under %s", elapsed, limit)
	}
}

func TestRunner_SpecStatError(t *testing.T) {
	t.Parallel()

	fake := &fakeBuildx{}
	r := newFakeRunner(t, fake)

	_, err := r.Validate(context.Background(), "bake\x00.hcl")
	if err == nil {
		t.Fatal("Validate() error = nil, want stat failure")
	}
	if errors.Is(err, ErrSpecNotFound) {
		t.Errorf("Validate() error = %v, should not report a missing bake file", err)
	}
	fake.assertCalls(t, 0)
}

func TestRunner_SpecIsDirectory(t *testing.T) {
	t.Parallel()

	fake := &fakeBuildx{}
	r := newFakeRunner(t, fake)

	if _, err := r.Validate(context.Background(), t.TempDir()); !errors.Is(err, ErrSpecNotFound) {
		t.Errorf("Validate() error = %v, want ErrSpecNotFound", err)
	}
	fake.assertCalls(t, 0)
}

func TestRunner_Canceled(t *testing.T) {
	t.Parallel()

	spec := writeSpec(t)
	fake := &fakeBuildx{}
	r := newFakeRunner(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Validate(ctx, spec); !errors.Is(err, context.Canceled) {
		t.Errorf("Validate() error = %v, want context.Canceled", err)
	}
}

func TestRunner_ToolMissing(t *testing.T) {
	t.Parallel()

	spec := writeSpec(t)
	fake := &fakeBuildx{}
	r := NewRunner("stagecraft-no-such-binary", WithExecCommand(fake.command))

	res, err := r.Validate(context.Background(), spec)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if res.Passed || !res.ToolMissing || res.Diagnostics != MissingToolMessage {
		t.Errorf("result = %+v, want tool-missing failure", res)
	}
	fake.assertCalls(t, 0)
}

func TestRunner_SpecNotFound(t *testing.T) {
	t.Parallel()

	fake := &fakeBuildx{}
	r := newFakeRunner(t, fake)

	_, err := r.Validate(context.Background(), filepath.Join(t.TempDir(), "docker-argo-bake.hcl"))
	if !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("Validate() error = %v, want ErrSpecNotFound", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.BakeFileNotFoundId {
		t.Errorf("expected actionable error linked to BakeFileNotFoundId, got %v", err)
	}
	fake.assertCalls(t, 0)
}

func TestTimeoutMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{300 * time.Second, "Dockerfile validation timed out after 5 minutes"},
		{time.Minute, "Dockerfile validation timed out after 1 minute"},
		{90 * time.Second, "Dockerfile validation timed out after 1m30s"},
	}
	for _, tt := range tests {
		if got := TimeoutMessage(tt.d); got != tt.want {
			t.Errorf("TimeoutMessage(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
