// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stagecraft/stagecraft/internal/issue"
	"github.com/stagecraft/stagecraft/internal/testutil"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		files          map[string]string
		wantBake       string
		wantDockerfile string
		wantPlatform   string
		wantNote       string
	}{
		{
			name: "dockerfile from bake file",
			files: map[string]string{
				"ViaCBSfile":             sampleManifest,
				"docker/docker-bake.hcl": "target \"app\" {\n  dockerfile = \"../images/app.Dockerfile\"\n}\n",
				"images/app.Dockerfile":  "FROM python:3.7\n",
				"Dockerfile":             "FROM scratch\n",
			},
			wantBake:       "docker/docker-bake.hcl",
			wantDockerfile: "images/app.Dockerfile",
			wantPlatform:   "python-pypi",
			wantNote:       "Found Dockerfile path from bake file",
		},
		{
			name: "bake file missing falls back to root",
			files: map[string]string{
				"ViaCBSfile": sampleManifest,
				"Dockerfile": "FROM python:3.7\n",
			},
			wantDockerfile: "Dockerfile",
			wantPlatform:   "python-pypi",
			wantNote:       "docker-bake file specified but not found",
		},
		{
			name: "dockerfile outside repository",
			files: map[string]string{
				"ViaCBSfile":             sampleManifest,
				"docker/docker-bake.hcl": "target \"app\" {\n  dockerfile = \"../../elsewhere/Dockerfile\"\n}\n",
				"Dockerfile":             "FROM python:3.7\n",
			},
			wantBake:       "docker/docker-bake.hcl",
			wantDockerfile: "Dockerfile",
			wantPlatform:   "python-pypi",
			wantNote:       "outside repository",
		},
		{
			name: "no platform no dockerfile",
			files: map[string]string{
				"ViaCBSfile": "viaCBS { }\n",
			},
			wantNote: "No buildAs argument found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			testutil.WriteTree(t, root, tt.files)

			an, err := NewAnalyzer().Analyze(root)
			if err != nil {
				t.Fatalf("Analyze() error: %v", err)
			}
			if an.ManifestPath != FileName {
				t.Errorf("ManifestPath = %q", an.ManifestPath)
			}
			if an.BakeFilePath != tt.wantBake {
				t.Errorf("BakeFilePath = %q, want %q", an.BakeFilePath, tt.wantBake)
			}
			if an.DockerfilePath != tt.wantDockerfile {
				t.Errorf("DockerfilePath = %q, want %q", an.DockerfilePath, tt.wantDockerfile)
			}
			if an.Platform != tt.wantPlatform {
				t.Errorf("Platform = %q, want %q", an.Platform, tt.wantPlatform)
			}
			if notes := strings.Join(an.Notes, "\n"); !strings.Contains(notes, tt.wantNote) {
				t.Errorf("notes should mention %q:\n%s", tt.wantNote, notes)
			}
		})
	}
}

func TestAnalyze_PyProject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"ViaCBSfile":     sampleManifest,
		"Dockerfile":     "FROM python:3.12\n",
		"pyproject.toml": "[project]\nname = \"widget\"\nrequires-python = \">=3.11\"\n",
	})

	an, err := NewAnalyzer().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if an.Python == nil || an.Python.RequiresPython != ">=3.11" || an.Python.Name != "widget" {
		t.Fatalf("Python = %+v", an.Python)
	}
	if !slices.Contains(an.Notes, "pyproject.toml requires Python >=3.11") {
		t.Errorf("Notes = %q", an.Notes)
	}

	testutil.MustWriteFile(t, root, "pyproject.toml", "[project\n")
	an, err = NewAnalyzer().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if an.Python != nil {
		t.Errorf("unreadable pyproject.toml should be ignored, got %+v", an.Python)
	}
}

func TestAnalyze_ManifestMissing(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer().Analyze(t.TempDir())
	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("error = %v, want ErrManifestNotFound", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.IssueID != issue.ManifestNotFoundId {
		t.Errorf("error should carry ManifestNotFoundId, got %#v", err)
	}
}

func TestWithinRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir, p string
		want   string
		ok     bool
	}{
		{".", "Dockerfile", "Dockerfile", true},
		{"docker", "../Dockerfile", "Dockerfile", true},
		{"docker", "app/Dockerfile", "docker/app/Dockerfile", true},
		{".", "../Dockerfile", "", false},
		{"docker", "/etc/Dockerfile", "", false},
	}
	for _, tt := range tests {
		got, ok := withinRoot(tt.dir, tt.p)
		if got != tt.want || ok != tt.ok {
			t.Errorf("withinRoot(%q, %q) = %q, %v", tt.dir, tt.p, got, ok)
		}
	}
}
