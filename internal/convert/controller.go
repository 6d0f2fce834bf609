// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/stagecraft/stagecraft/internal/artifact"
	"github.com/stagecraft/stagecraft/internal/issue"
	"github.com/stagecraft/stagecraft/internal/shape"
	"github.com/stagecraft/stagecraft/internal/transform"
	"github.com/stagecraft/stagecraft/internal/validate"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxAttempts is the retry budget used when a Request leaves it at zero.
	DefaultMaxAttempts = 2
	// DefaultSpecFile is the bake file looked up next to the derived Dockerfile.
	DefaultSpecFile = "docker-argo-bake.hcl"

	// noteDiagnosticBytes caps the diagnostic excerpt quoted in progress notes.
	noteDiagnosticBytes = 300
)

var (
	// ErrMissingWorkRoot is returned when a Request has no working-copy root.
	ErrMissingWorkRoot = errors.New("work root is required")
	// ErrMissingDescription is returned when a Request names no Dockerfile.
	ErrMissingDescription = errors.New("dockerfile path is required")
	// ErrDescriptionNotFound is returned when the Dockerfile to convert does not exist.
	ErrDescriptionNotFound = errors.New("dockerfile not found")
	// ErrInvalidTransition is returned if the controller attempts a move the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

type (
	// Validator checks a bake file. *validate.Runner satisfies it.
	Validator interface {
		Validate(ctx context.Context, specPath string) (validate.Result, error)
	}

	// Option configures a Controller.
	Option func(*Controller)

	// Controller runs the transform-and-validate loop. A Controller holds no
	// per-run state and may be reused for independent repositories.
	Controller struct {
		transformer transform.Transformer
		validator   Validator
		specFile    string
		logger      *log.Logger
	}

	// Request is the input of one conversion.
	Request struct {
		// WorkRoot is the checked-out repository.
		WorkRoot string
		// DescriptionPath is the Dockerfile to convert, relative to WorkRoot.
		DescriptionPath string
		// Platform is the manifest's build platform. Empty means nothing to convert.
		Platform string
		// BuildConfig is the body of the manifest's buildAs block.
		BuildConfig string
		// MaxAttempts is the number of corrective retries; zero selects DefaultMaxAttempts.
		MaxAttempts int
		// SpecPath is an explicit bake file relative to WorkRoot. When empty the
		// bake file next to the derived Dockerfile is used.
		SpecPath string
	}

	// Result is the outcome of one conversion.
	Result struct {
		// DerivedPath is the written variant, relative to the work root.
		DerivedPath string
		// SpecPath is the bake file validated against, relative to the work root.
		SpecPath string
		// Updated is set once the derived variant has been written.
		Updated bool
		// Passed is set when a validation succeeded.
		Passed bool
		// Attempts is the number of retries consumed.
		Attempts int
		// Validations is the number of validator calls made.
		Validations int
		// LastError is the diagnostic of the last failed validation.
		LastError string
		// State is the terminal state of the run.
		State State
		// Notes are human-readable progress notes, one per step.
		Notes []string
	}

	// run is the mutable record of one Controller.Run invocation.
	run struct {
		ctrl   *Controller
		req    Request
		store  *artifact.Store
		state  State
		desc   BuildDescription
		retry  RetryState
		result Result
	}
)

// WithLogger sets the logger used for progress notes.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSpecFile sets the name of the default bake file looked up next to the
// derived Dockerfile.
func WithSpecFile(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.specFile = name
		}
	}
}

// New creates a Controller.
func New(t transform.Transformer, v Validator, opts ...Option) *Controller {
	c := &Controller{
		transformer: t,
		validator:   v,
		specFile:    DefaultSpecFile,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run converts req.DescriptionPath into its derived variant and validates it,
// retrying with the validator's diagnostics until a validation passes or the
// budget is spent. Exhausting the budget is not an error: the returned Result
// has State ExhaustedRetries and Passed false. A non-nil error always comes
// with State FatalError.
func (c *Controller) Run(ctx context.Context, req Request) (Result, error) {
	r := &run{
		ctrl:  c,
		req:   req,
		state: StateInit,
		desc:  BuildDescription{OriginalPath: req.DescriptionPath},
		retry: RetryState{MaxAttempts: req.MaxAttempts},
	}
	if r.retry.MaxAttempts <= 0 {
		r.retry.MaxAttempts = DefaultMaxAttempts
	}

	err := r.execute(ctx)
	r.result.State = r.state
	r.result.Attempts = r.retry.Attempt
	r.result.LastError = r.retry.LastError
	r.result.Passed = r.retry.Passed == VerdictPassed
	if r.result.Passed {
		r.result.LastError = ""
	}
	return r.result, err
}

func (r *run) execute(ctx context.Context) error {
	if strings.TrimSpace(r.req.Platform) == "" {
		r.note("No build platform in manifest; skipping Dockerfile conversion")
		return r.moveTo(StateSkipped)
	}

	original, err := r.loadOriginal()
	if err != nil {
		return err
	}
	if err := r.moveTo(StateCheckShape); err != nil {
		return err
	}

	derived := artifact.DeriveVariantPath(r.desc.OriginalPath)
	specRel := r.req.SpecPath
	if specRel == "" {
		specRel = path.Join(path.Dir(derived), r.ctrl.specFile)
	}
	specAbs, err := r.store.Resolve(specRel)
	if err != nil {
		return r.fail("resolve bake file", specRel, issue.BakeFileNotFoundId, err)
	}
	r.result.DerivedPath = derived
	r.result.SpecPath = specRel

	if r.retry.Attempt == 0 && shape.IsMultiStage(original) {
		r.note(fmt.Sprintf("%s is already multi-stage%s; copying it unchanged", r.desc.OriginalPath, stageSummary(original)))
		if err := r.moveTo(StatePersist); err != nil {
			return err
		}
		if err := r.persist(derived, original); err != nil {
			return err
		}
	} else if err := r.moveTo(StateTransform); err != nil {
		return err
	}

	for {
		if r.state == StateTransform {
			content, err := r.transform(ctx)
			if err != nil {
				return err
			}
			if err := r.moveTo(StatePersist); err != nil {
				return err
			}
			if err := r.persist(derived, content); err != nil {
				return err
			}
		}

		if err := r.moveTo(StateValidate); err != nil {
			return err
		}
		res, verr := r.ctrl.validator.Validate(ctx, specAbs)
		r.result.Validations++

		outcome := classify(res, verr)
		switch outcome.Kind {
		case OutcomePassed:
			r.retry.Passed = VerdictPassed
			r.note(fmt.Sprintf("Validation passed (attempt %d/%d)", r.retry.Attempt+1, r.retry.MaxAttempts+1))
			return r.moveTo(StatePassed)

		case OutcomeFatal:
			r.retry.Passed = VerdictFailed
			var id issue.Id
			if isSpecMissing(outcome) {
				id = issue.BakeFileNotFoundId
				r.note(fmt.Sprintf("Bake file %s not found; stopping without retry", specRel))
			}
			return r.fail("validate dockerfile", specRel, id, outcome.Err)

		default:
			r.retry.Passed = VerdictFailed
			r.retry.LastError = outcome.Diagnostics
			r.note(fmt.Sprintf("Validation failed (attempt %d/%d): %s",
				r.retry.Attempt+1, r.retry.MaxAttempts+1, excerpt(outcome.Diagnostics)))

			if r.retry.Attempt >= r.retry.MaxAttempts {
				r.note(fmt.Sprintf("Retry budget of %d spent; keeping %s unvalidated", r.retry.MaxAttempts, derived))
				return r.moveTo(StateExhaustedRetries)
			}
			r.retry.Attempt++
			if err := r.moveTo(StateTransform); err != nil {
				return err
			}
		}
	}
}

// loadOriginal checks the request and reads the Dockerfile to convert.
func (r *run) loadOriginal() (string, error) {
	if strings.TrimSpace(r.req.WorkRoot) == "" {
		return "", r.fail("convert dockerfile", "", 0, ErrMissingWorkRoot)
	}
	if strings.TrimSpace(r.req.DescriptionPath) == "" {
		return "", r.fail("convert dockerfile", r.req.WorkRoot, issue.DockerfileNotFoundId, ErrMissingDescription)
	}

	store, err := artifact.NewStore(r.req.WorkRoot)
	if err != nil {
		return "", r.fail("open work root", r.req.WorkRoot, 0, err)
	}
	r.store = store

	text, ok, err := store.Read(r.desc.OriginalPath)
	if err != nil {
		return "", r.fail("read dockerfile", r.desc.OriginalPath, 0, err)
	}
	if !ok {
		return "", r.fail("read dockerfile", r.desc.OriginalPath, issue.DockerfileNotFoundId,
			fmt.Errorf("%w: %s", ErrDescriptionNotFound, r.desc.OriginalPath))
	}
	return text, nil
}

// transform rewrites the active description. The original is read only until
// the derived variant exists.
func (r *run) transform(ctx context.Context) (string, error) {
	active := r.desc.ActiveDescription()
	content, ok, err := r.store.Read(active)
	if err != nil {
		return "", r.fail("read dockerfile", active, 0, err)
	}
	if !ok {
		return "", r.fail("read dockerfile", active, issue.DockerfileNotFoundId,
			fmt.Errorf("%w: %s", ErrDescriptionNotFound, active))
	}

	if r.retry.LastError == "" {
		r.note(fmt.Sprintf("Transforming %s for platform %s", active, r.req.Platform))
	} else {
		r.note(fmt.Sprintf("Retry %d/%d: transforming %s with validator feedback", r.retry.Attempt, r.retry.MaxAttempts, active))
	}

	out, err := r.ctrl.transformer.Transform(ctx, transform.Request{
		Content:     content,
		Platform:    r.req.Platform,
		BuildConfig: r.req.BuildConfig,
		PriorError:  r.retry.LastError,
	})
	if err != nil {
		return "", r.fail("transform dockerfile", active, issue.TransformerUnavailableId, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", r.fail("transform dockerfile", active, issue.TransformerUnavailableId, transform.ErrEmptyResponse)
	}
	return out, nil
}

func (r *run) persist(derived, content string) error {
	if err := r.store.Write(derived, content); err != nil {
		return r.fail("write derived dockerfile", derived, 0, err)
	}
	r.desc.WorkingPath = derived
	r.result.Updated = true
	r.note(fmt.Sprintf("Wrote %s", derived))
	return nil
}

func (r *run) moveTo(to State) error {
	if !isAllowedTransition(r.state, to) {
		err := fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, to)
		r.state = StateFatalError
		return err
	}
	r.ctrl.logger.Debug("state transition", "from", r.state, "to", to, "attempt", r.retry.Attempt, "budget", r.retry.MaxAttempts)
	r.state = to
	return nil
}

// fail moves the run to FatalError and wraps err with user-facing context.
// Errors that already carry context are returned as they are.
func (r *run) fail(operation, resource string, id issue.Id, err error) error {
	if !r.state.IsTerminal() {
		r.state = StateFatalError
	}
	r.note(fmt.Sprintf("Conversion stopped: %v", err))

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithIssue(id).
		Wrap(err)
	switch id {
	case issue.TransformerUnavailableId:
		ec = ec.WithSuggestion("Check the transformer API key and endpoint in the configuration")
	case issue.DockerfileNotFoundId:
		ec = ec.WithSuggestion("Check the dockerfile attribute of the bake file or add a Dockerfile at the repository root")
	}
	return ec.BuildError()
}

func (r *run) note(msg string) {
	r.result.Notes = append(r.result.Notes, msg)
	r.ctrl.logger.Info(msg, "path", r.desc.OriginalPath, "platform", r.req.Platform)
}

// stageSummary renders " (N stages: a, b AS c)" for a note, or nothing when the
// Dockerfile cannot be parsed.
func stageSummary(text string) string {
	stages, err := shape.Stages(text)
	if err != nil || len(stages) == 0 {
		return ""
	}
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		if s.Name != "" {
			names = append(names, s.BaseImage+" AS "+s.Name)
		} else {
			names = append(names, s.BaseImage)
		}
	}
	return fmt.Sprintf(" (%d stages: %s)", len(stages), strings.Join(names, ", "))
}

func excerpt(diag string) string {
	diag = strings.TrimSpace(diag)
	if len(diag) <= noteDiagnosticBytes {
		return diag
	}
	cut := noteDiagnosticBytes
	for cut > 0 && !utf8.RuneStart(diag[cut]) {
		cut--
	}
	return diag[:cut] + "..."
}
