// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "read build manifest"},
			expected: "failed to read build manifest",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "read build manifest",
				Resource:  "ViaCBSfile",
			},
			expected: "failed to read build manifest: ViaCBSfile",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "clone repository",
				Resource:  "https://github.com/org/repo",
				Cause:     errors.New("connection refused"),
			},
			expected: "failed to clone repository: https://github.com/org/repo: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Guide(t *testing.T) {
	if g := (&ActionableError{Operation: "x"}).Guide(); g != nil {
		t.Errorf("Guide() without issue = %v, want nil", g)
	}
	g := (&ActionableError{Operation: "x", IssueID: ValidatorNotFoundId}).Guide()
	if g == nil || g.Id() != ValidatorNotFoundId {
		t.Errorf("Guide() = %v", g)
	}
}

func TestActionableError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions listed",
			err: &ActionableError{
				Operation:   "validate build",
				Suggestions: []string{"Install buildx", "Check PATH"},
			},
			contains: []string{"failed to validate build", "• Install buildx", "• Check PATH"},
		},
		{
			name: "no chain when quiet",
			err: &ActionableError{
				Operation: "parse config",
				Cause:     errors.New("syntax error"),
			},
			contains: []string{"failed to parse config: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested chain when verbose",
			err: &ActionableError{
				Operation: "convert dockerfile",
				Cause: &ActionableError{
					Operation: "persist artifact",
					Cause:     errors.New("read-only file system"),
				},
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. failed to persist artifact: read-only file system",
				"2. read-only file system",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("clone repository").
		WithResource("git@github.com:org/repo.git").
		WithSuggestion("Check your SSH agent").
		WithIssue(CloneFailedId).
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.IssueID != CloneFailedId {
		t.Errorf("IssueID = %d, want %d", ae.IssueID, CloneFailedId)
	}
	if len(ae.Suggestions) != 1 || ae.Suggestions[0] != "Check your SSH agent" {
		t.Errorf("Suggestions = %q", ae.Suggestions)
	}
	if !errors.Is(ae, cause) {
		t.Error("cause not wrapped")
	}
}

func TestErrorContext_BuildCopiesSuggestions(t *testing.T) {
	ec := NewErrorContext().WithOperation("render templates").WithSuggestion("first")
	first := ec.Build()
	ec.WithSuggestion("second")
	if len(first.Suggestions) != 1 {
		t.Errorf("earlier Build() result changed: %q", first.Suggestions)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}
}
