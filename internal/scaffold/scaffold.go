// SPDX-License-Identifier: MPL-2.0

package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/stagecraft/stagecraft/internal/artifact"

	"github.com/charmbracelet/log"
)

const (
	// TemplateExt is stripped from template names to form output names.
	TemplateExt = ".tpl"
	// WorkflowsDir receives the rendered gha/ templates.
	WorkflowsDir = ".github/workflows"

	leftDelim  = "[["
	rightDelim = "]]"
)

var (
	//go:embed templates
	embedded embed.FS

	// ErrMissingDockerfile is returned when Context names no Dockerfile.
	ErrMissingDockerfile = errors.New("dockerfile path is required")
	// ErrNoTemplates is returned when the template source holds no .tpl files.
	ErrNoTemplates = errors.New("no templates found")
)

type (
	// Context is the data every template is rendered with.
	Context struct {
		GithubOrg string
		RepoName  string
		// DockerfilePath is the derived Dockerfile, relative to the repository root.
		DockerfilePath string
	}

	// Option configures a Scaffolder.
	Option func(*Scaffolder)

	// Scaffolder renders templates into repositories.
	Scaffolder struct {
		templates fs.FS
		logger    *log.Logger
	}

	// destination maps a template directory to where its output lands.
	destination struct {
		dir    string
		target string
	}
)

var destinations = []destination{
	{dir: "gha", target: WorkflowsDir},
	{dir: "docker", target: "."},
}

// WithTemplatesDir replaces the embedded templates with the gha/ and docker/
// directories under dir. An empty dir keeps the embedded templates.
func WithTemplatesDir(dir string) Option {
	return func(s *Scaffolder) {
		if dir != "" {
			s.templates = os.DirFS(dir)
		}
	}
}

// WithFS replaces the template source.
func WithFS(fsys fs.FS) Option {
	return func(s *Scaffolder) {
		if fsys != nil {
			s.templates = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scaffolder) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scaffolder using the embedded templates.
func New(opts ...Option) *Scaffolder {
	sub, _ := fs.Sub(embedded, "templates") //nolint:errcheck // "templates" is a valid embedded directory
	s := &Scaffolder{templates: sub, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render renders every template into root and returns the written paths,
// relative to root, in the order they were written.
func (s *Scaffolder) Render(root string, data Context) ([]string, error) {
	if strings.TrimSpace(data.DockerfilePath) == "" {
		return nil, ErrMissingDockerfile
	}

	store, err := artifact.NewStore(root)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, dest := range destinations {
		names, err := fs.Glob(s.templates, dest.dir+"/*"+TemplateExt)
		if err != nil {
			return written, fmt.Errorf("list %s templates: %w", dest.dir, err)
		}
		slices.Sort(names)

		for _, name := range names {
			rel := path.Join(dest.target, strings.TrimSuffix(path.Base(name), TemplateExt))
			if err := s.renderOne(store, name, rel, data); err != nil {
				return written, err
			}
			written = append(written, rel)
			s.logger.Info("rendered template", "template", name, "path", rel)
		}
	}

	if len(written) == 0 {
		return nil, ErrNoTemplates
	}
	return written, nil
}

func (s *Scaffolder) renderOne(store *artifact.Store, name, rel string, data Context) error {
	src, err := fs.ReadFile(s.templates, name)
	if err != nil {
		return fmt.Errorf("read template %s: %w", name, err)
	}

	out, err := RenderString(name, string(src), data)
	if err != nil {
		return err
	}

	full, err := store.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(rel), err)
	}
	return store.Write(rel, out)
}

// RenderString renders one template source with [[ ]] delimiters. Missing
// fields are an error rather than "<no value>".
func RenderString(name, src string, data Context) (string, error) {
	tmpl, err := template.New(name).Delims(leftDelim, rightDelim).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
