// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/stagecraft/stagecraft/internal/artifact"
	"github.com/stagecraft/stagecraft/internal/issue"

	"github.com/charmbracelet/log"
)

// rootDockerfile is used when the manifest does not lead to a Dockerfile.
const rootDockerfile = "Dockerfile"

// ErrManifestNotFound is returned when the repository has no ViaCBSfile.
var ErrManifestNotFound = errors.New("ViaCBSfile not found")

type (
	// Analysis is everything stagecraft learned about a repository's build.
	// Paths are relative to the repository root.
	Analysis struct {
		ManifestPath string
		// BakeFilePath is set when the manifest names a bake file that exists.
		BakeFilePath string
		// BakeTarget is the bake target the Dockerfile was taken from.
		BakeTarget string
		// DockerfilePath is empty when no Dockerfile could be found.
		DockerfilePath string
		Platform       string
		BuildConfig    string
		HasDockerSpec  bool
		// Python is set when the repository has a readable pyproject.toml.
		Python *PyProject
		// Notes are human-readable findings in the order they were made.
		Notes []string
	}

	// Analyzer inspects checked-out repositories.
	Analyzer struct {
		logger *log.Logger
	}

	// AnalyzerOption configures an Analyzer.
	AnalyzerOption func(*Analyzer)
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze reads the ViaCBSfile under root and locates the Dockerfile. A missing
// manifest is an error; a missing bake file or Dockerfile is only noted.
func (a *Analyzer) Analyze(root string) (Analysis, error) {
	var an Analysis

	store, err := artifact.NewStore(root)
	if err != nil {
		return an, fmt.Errorf("open repository: %w", err)
	}

	content, ok, err := store.Read(FileName)
	if err != nil {
		return an, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	if !ok {
		return an, issue.NewErrorContext().
			WithOperation("analyze repository").
			WithResource(root).
			WithSuggestion("Add a ViaCBSfile at the repository root").
			WithIssue(issue.ManifestNotFoundId).
			Wrap(ErrManifestNotFound).
			BuildError()
	}
	an.ManifestPath = FileName
	a.note(&an, "Found %s", FileName)

	m := Parse(content)
	an.HasDockerSpec = m.HasDockerSpec

	if m.BakeFile != "" {
		a.fromBakeFile(store, &an, m.BakeFile)
	}

	if an.DockerfilePath == "" {
		if store.Exists(rootDockerfile) {
			an.DockerfilePath = rootDockerfile
			a.note(&an, "Found Dockerfile in repository root: %s", rootDockerfile)
		} else {
			a.note(&an, "No Dockerfile found in repository root")
		}
	}

	a.fromPyProject(store, &an)

	if m.Platform != "" {
		an.Platform = m.Platform
		an.BuildConfig = m.BuildConfig
		a.note(&an, "Identified build platform: %s", m.Platform)
		if m.BuildConfig != "" {
			a.note(&an, "Extracted buildAs configuration: %s", m.BuildConfig)
		}
	} else {
		a.note(&an, "No buildAs argument found in %s", FileName)
	}

	return an, nil
}

// fromBakeFile records the bake file and the Dockerfile it names, if both exist
// inside the repository.
func (a *Analyzer) fromBakeFile(store *artifact.Store, an *Analysis, declared string) {
	rel := path.Clean(strings.TrimPrefix(declared, "./"))
	data, ok, err := store.Read(rel)
	if err != nil || !ok {
		a.note(an, "docker-bake file specified but not found: %s", declared)
		return
	}
	an.BakeFilePath = rel
	a.note(an, "Found docker-bake file at %s", rel)

	var dockerfile string
	if bf, perr := ParseBake(rel, []byte(data)); perr == nil {
		target, df, found := bf.Dockerfile()
		if found {
			an.BakeTarget = target
			dockerfile = df
		}
	} else {
		a.logger.Debug("bake file is not valid HCL, falling back to text search", "path", rel, "error", perr)
	}
	if dockerfile == "" {
		df, found := DockerfileFromBake(rel, []byte(data))
		if !found {
			return
		}
		dockerfile = df
	}

	resolved, inside := withinRoot(path.Dir(rel), dockerfile)
	if !inside {
		a.note(an, "Dockerfile path from bake file is outside repository: %s", dockerfile)
		return
	}
	if !store.Exists(resolved) {
		a.note(an, "Dockerfile named by bake file does not exist: %s", resolved)
		return
	}
	an.DockerfilePath = resolved
	a.note(an, "Found Dockerfile path from bake file: %s", resolved)
}

func (a *Analyzer) fromPyProject(store *artifact.Store, an *Analysis) {
	data, ok, err := store.Read(PyProjectFileName)
	if err != nil || !ok {
		return
	}
	pp, err := ParsePyProject([]byte(data))
	if err != nil {
		a.note(an, "Ignoring unreadable %s: %v", PyProjectFileName, err)
		return
	}
	an.Python = &pp
	if pp.RequiresPython != "" {
		a.note(an, "%s requires Python %s", PyProjectFileName, pp.RequiresPython)
	} else {
		a.note(an, "Found %s", PyProjectFileName)
	}
}

func (a *Analyzer) note(an *Analysis, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	an.Notes = append(an.Notes, msg)
	a.logger.Info(msg)
}

// withinRoot joins p onto dir and reports whether the result stays inside the
// repository root.
func withinRoot(dir, p string) (string, bool) {
	if path.IsAbs(p) {
		return "", false
	}
	joined := path.Join(dir, p)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", false
	}
	return joined, true
}
