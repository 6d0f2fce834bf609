// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stagecraft/stagecraft/internal/issue"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

const (
	// DefaultTimeout bounds one clone attempt.
	DefaultTimeout = 5 * time.Minute
	// DefaultAttempts is the number of clone attempts for transient failures.
	DefaultAttempts = 3

	defaultBackoff = 2 * time.Second
)

type (
	// Option configures a Cloner.
	Option func(*Cloner)

	// Cloner clones repositories into a workspace directory.
	Cloner struct {
		workspace string
		timeout   time.Duration
		attempts  int
		backoff   time.Duration
		auth      transport.AuthMethod
		authSet   bool
		logger    *log.Logger
	}

	// Checkout is a repository on disk.
	Checkout struct {
		// Path is the absolute path of the working tree.
		Path string
		// Name is the repository name derived from the URL.
		Name string
		// Head is the checked-out commit, empty when it could not be read.
		Head string
		// Reused is set when the directory already existed and no clone ran.
		Reused bool
	}
)

// WithTimeout sets the per-attempt clone timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Cloner) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAttempts sets how many times a transient failure is retried.
func WithAttempts(n int) Option {
	return func(c *Cloner) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Cloner) {
		c.backoff = d
	}
}

// WithAuth sets the transport credentials, replacing the environment lookup.
func WithAuth(auth transport.AuthMethod) Option {
	return func(c *Cloner) {
		c.auth = auth
		c.authSet = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cloner) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCloner creates a Cloner that places repositories under workspace.
func NewCloner(workspace string, opts ...Option) *Cloner {
	c := &Cloner{
		workspace: workspace,
		timeout:   DefaultTimeout,
		attempts:  DefaultAttempts,
		backoff:   defaultBackoff,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the directory rawURL is cloned into.
func (c *Cloner) Target(rawURL string) (string, error) {
	abs, err := filepath.Abs(c.workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return filepath.Join(abs, RepoName(rawURL)), nil
}

// Clone clones rawURL into the workspace. An existing target directory is
// reused as is.
func (c *Cloner) Clone(ctx context.Context, rawURL string) (Checkout, error) {
	dest, err := c.Target(rawURL)
	if err != nil {
		return Checkout{}, err
	}
	co := Checkout{Path: dest, Name: filepath.Base(dest)}

	if _, err := os.Stat(dest); err == nil {
		c.logger.Info("repository directory already exists", "path", dest)
		co.Reused = true
		co.Head = headOf(dest)
		return co, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Checkout{}, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	auth := c.auth
	if !c.authSet {
		auth = authFor(rawURL)
	}

	backoff := Backoff{Attempts: c.attempts, Base: c.backoff}
	err = backoff.Retry(ctx, func(attempt int) (bool, error) {
		if attempt > 0 {
			c.logger.Warn("retrying clone", "url", rawURL, "attempt", attempt+1, "of", c.attempts)
		}
		cloneErr := c.cloneOnce(ctx, rawURL, dest, auth)
		if cloneErr != nil {
			// A partial checkout would be mistaken for a finished one next time.
			_ = os.RemoveAll(dest)
		}
		return IsTransientError(cloneErr), cloneErr
	})
	if err != nil {
		return Checkout{}, issue.NewErrorContext().
			WithOperation("clone repository").
			WithResource(rawURL).
			WithSuggestion("Check that the repository exists and the URL is correct").
			WithSuggestion("For private repositories set GITHUB_TOKEN or add an SSH key to ~/.ssh/").
			WithIssue(issue.CloneFailedId).
			Wrap(err).
			BuildError()
	}

	co.Head = headOf(dest)
	c.logger.Info("cloned repository", "path", dest, "head", co.Head)
	return co, nil
}

func (c *Cloner) cloneOnce(ctx context.Context, rawURL, dest string, auth transport.AuthMethod) error {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := git.PlainCloneContext(runCtx, dest, false, &git.CloneOptions{
		URL:  rawURL,
		Auth: auth,
	})
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("clone timed out after %s: %w", c.timeout, err)
	}
	return err
}

// headOf returns the HEAD commit of the repository at dir, or "".
func headOf(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

// authFor picks credentials for rawURL from the environment: an SSH key for
// SSH remotes, a token for HTTP remotes. Nil means anonymous access.
func authFor(rawURL string) transport.AuthMethod {
	if scpLikeURL.MatchString(rawURL) || strings.HasPrefix(rawURL, "ssh://") {
		return trySSHAuth()
	}
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return tryHTTPAuth()
	}
	return nil
}

func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", name)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func tryHTTPAuth() transport.AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}
