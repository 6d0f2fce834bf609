// SPDX-License-Identifier: MPL-2.0

package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stagecraft/stagecraft/internal/manifest"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRender_Embedded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	data := Context{GithubOrg: "acme", RepoName: "widget", DockerfilePath: "docker/app-argo.Dockerfile"}

	written, err := New().Render(root, data)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	want := []string{".github/workflows/argo-build.yaml", "docker-argo-bake.hcl"}
	if !slices.Equal(written, want) {
		t.Errorf("written = %v, want %v", written, want)
	}

	workflow := readFile(t, filepath.Join(root, ".github", "workflows", "argo-build.yaml"))
	if !strings.Contains(workflow, "ghcr.io/acme/widget:${{ github.sha }}") {
		t.Errorf("workflow should keep Actions expressions and fill the image name:\n%s", workflow)
	}

	bake := readFile(t, filepath.Join(root, "docker-argo-bake.hcl"))
	if !strings.Contains(bake, `dockerfile = "docker/app-argo.Dockerfile"`) {
		t.Errorf("bake file should point at the derived Dockerfile:\n%s", bake)
	}
	if !strings.Contains(bake, "${TAG}") {
		t.Error("bake variables should pass through")
	}
}

func TestRender_BakeTemplateParses(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := New().Render(root, Context{GithubOrg: "acme", RepoName: "widget", DockerfilePath: "Dockerfile-argo"}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	bf, err := manifest.ParseBake("docker-argo-bake.hcl", []byte(readFile(t, filepath.Join(root, "docker-argo-bake.hcl"))))
	if err != nil {
		t.Fatalf("rendered bake file does not parse: %v", err)
	}
	if target, df, ok := bf.Dockerfile(); !ok || target != "app" || df != "Dockerfile-argo" {
		t.Errorf("Dockerfile() = %q, %q, %v", target, df, ok)
	}
}

func TestRender_CustomTemplates(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"gha/ci.yml.tpl":      {Data: []byte("repo: [[ .GithubOrg ]]/[[ .RepoName ]]\n")},
		"gha/README.md":       {Data: []byte("not a template")},
		"docker/bake.hcl.tpl": {Data: []byte("dockerfile = \"[[ .DockerfilePath ]]\"\n")},
	}

	root := t.TempDir()
	written, err := New(WithFS(fsys)).Render(root, Context{GithubOrg: "o", RepoName: "r", DockerfilePath: "D-argo"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !slices.Equal(written, []string{".github/workflows/ci.yml", "bake.hcl"}) {
		t.Errorf("written = %v", written)
	}
	if got := readFile(t, filepath.Join(root, ".github", "workflows", "ci.yml")); got != "repo: o/r\n" {
		t.Errorf("ci.yml = %q", got)
	}
}

func TestRender_TemplatesDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docker"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docker", "only.hcl.tpl"), []byte("[[ .RepoName ]]"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	written, err := New(WithTemplatesDir(dir)).Render(root, Context{RepoName: "svc", DockerfilePath: "Dockerfile-argo"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !slices.Equal(written, []string{"only.hcl"}) {
		t.Errorf("written = %v", written)
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New().Render(t.TempDir(), Context{GithubOrg: "o", RepoName: "r"}); !errors.Is(err, ErrMissingDockerfile) {
		t.Errorf("error = %v, want ErrMissingDockerfile", err)
	}

	empty := New(WithFS(fstest.MapFS{}))
	if _, err := empty.Render(t.TempDir(), Context{DockerfilePath: "D"}); !errors.Is(err, ErrNoTemplates) {
		t.Errorf("error = %v, want ErrNoTemplates", err)
	}
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	out, err := RenderString("t", "[[ .RepoName ]] {{ keep }} ${{ env.X }}", Context{RepoName: "r"})
	if err != nil {
		t.Fatalf("RenderString() error: %v", err)
	}
	if out != "r {{ keep }} ${{ env.X }}" {
		t.Errorf("RenderString() = %q", out)
	}

	if _, err := RenderString("bad", "[[ .Unknown ]]", Context{}); err == nil {
		t.Error("unknown field should fail")
	}
}
