// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/stagecraft/stagecraft/internal/artifact"
	"github.com/stagecraft/stagecraft/internal/convert"
	"github.com/stagecraft/stagecraft/internal/issue"
	"github.com/stagecraft/stagecraft/internal/manifest"
	"github.com/stagecraft/stagecraft/internal/scaffold"
	"github.com/stagecraft/stagecraft/internal/source"

	"github.com/charmbracelet/log"
)

const (
	StepValidateURL Step = iota
	StepClone
	StepAnalyze
	StepScaffold
	StepConvert
	StepDone
)

type (
	// Step names a pipeline stage.
	Step int

	// Cloner is satisfied by *source.Cloner.
	Cloner interface {
		Clone(ctx context.Context, rawURL string) (source.Checkout, error)
	}

	// Analyzer is satisfied by *manifest.Analyzer.
	Analyzer interface {
		Analyze(root string) (manifest.Analysis, error)
	}

	// Scaffolder is satisfied by *scaffold.Scaffolder.
	Scaffolder interface {
		Render(root string, data scaffold.Context) ([]string, error)
	}

	// Converter is satisfied by *convert.Controller.
	Converter interface {
		Run(ctx context.Context, req convert.Request) (convert.Result, error)
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	// Pipeline runs the steps in order and stops at the first failure.
	Pipeline struct {
		cloner      Cloner
		analyzer    Analyzer
		scaffolder  Scaffolder
		converter   Converter
		maxAttempts int
		logger      *log.Logger
	}
)

var stepNames = [...]string{
	StepValidateURL: "validate URL",
	StepClone:       "clone",
	StepAnalyze:     "analyze",
	StepScaffold:    "scaffold",
	StepConvert:     "convert",
	StepDone:        "done",
}

func (s Step) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// WithMaxAttempts sets the conversion retry budget.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		p.maxAttempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline.
func New(c Cloner, a Analyzer, s Scaffolder, conv Converter, opts ...Option) *Pipeline {
	p := &Pipeline{
		cloner:     c,
		analyzer:   a,
		scaffolder: s,
		converter:  conv,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one repository. The returned Report is never nil and
// describes every step reached, including the one that failed.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*Report, error) {
	rep := &Report{Repository: rawURL, Step: StepValidateURL}

	if err := source.ValidateURL(rawURL); err != nil {
		rep.note("Validation failed: %v", err)
		return rep, issue.NewErrorContext().
			WithOperation("validate repository URL").
			WithResource(rawURL).
			WithSuggestion("Use https://host/org/repo(.git) or git@host:org/repo.git").
			WithIssue(issue.InvalidRepositoryURLId).
			Wrap(err).
			BuildError()
	}
	rep.note("Repository URL is valid: %s", rawURL)

	rep.Step = StepClone
	p.logger.Info("cloning repository", "url", rawURL)
	co, err := p.cloner.Clone(ctx, rawURL)
	if err != nil {
		rep.note("Clone failed: %v", err)
		return rep, err
	}
	rep.Checkout = &co
	if co.Reused {
		rep.note("Directory %s already exists", co.Path)
	} else {
		rep.note("Successfully cloned repository to %s", co.Path)
	}

	rep.Step = StepAnalyze
	an, err := p.analyzer.Analyze(co.Path)
	if err != nil {
		rep.note("Analysis failed: %v", err)
		return rep, err
	}
	rep.Analysis = &an
	rep.Notes = append(rep.Notes, an.Notes...)

	rep.Step = StepScaffold
	data, err := templateContext(rawURL, an.DockerfilePath)
	if err != nil {
		rep.note("Cannot scaffold CI files: %v", err)
		return rep, err
	}
	written, err := p.scaffolder.Render(co.Path, data)
	if err != nil {
		rep.note("Scaffolding failed: %v", err)
		return rep, fmt.Errorf("scaffold %s: %w", co.Path, err)
	}
	rep.Scaffolded = written
	rep.note("Copied %d dependency files", len(written))

	rep.Step = StepConvert
	res, err := p.converter.Run(ctx, convert.Request{
		WorkRoot:        co.Path,
		DescriptionPath: an.DockerfilePath,
		Platform:        an.Platform,
		BuildConfig:     an.BuildConfig,
		MaxAttempts:     p.maxAttempts,
		SpecPath:        an.BakeFilePath,
	})
	rep.Conversion = &res
	rep.Notes = append(rep.Notes, res.Notes...)
	if err != nil {
		return rep, err
	}

	rep.Step = StepDone
	return rep, nil
}

// templateContext derives the scaffold data from the repository URL and the
// Dockerfile the analysis found.
func templateContext(rawURL, dockerfile string) (scaffold.Context, error) {
	if dockerfile == "" {
		return scaffold.Context{}, scaffold.ErrMissingDockerfile
	}
	org, repo, err := source.ParseGitHubURL(rawURL)
	if err != nil {
		return scaffold.Context{}, fmt.Errorf("failed to parse GitHub URL: %w", err)
	}
	return scaffold.Context{
		GithubOrg:      org,
		RepoName:       repo,
		DockerfilePath: artifact.DeriveVariantPath(dockerfile),
	}, nil
}
