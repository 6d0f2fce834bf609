// SPDX-License-Identifier: MPL-2.0

package source

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
)

// fallbackRepoName is used when no name can be read from a URL.
const fallbackRepoName = "cloned_repo"

var (
	// ErrInvalidURL is the sentinel error wrapped by InvalidURLError.
	ErrInvalidURL = errors.New("invalid repository URL")
	// ErrNotGitHub is returned by ParseGitHubURL for URLs on other hosts.
	ErrNotGitHub = errors.New("not a GitHub repository")

	allowedSchemes = []string{"http", "https", "git", "ssh"}

	// scpLikeURL matches the scp form used by SSH remotes: git@github.com:org/repo.git
	scpLikeURL = regexp.MustCompile(`^[A-Za-z0-9._-]+@([A-Za-z0-9.-]+):(.+)$`)
	// shortGitHubRef matches "org/repo".
	shortGitHubRef = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]+)$`)
)

// InvalidURLError is returned when a repository URL is rejected.
// It wraps ErrInvalidURL for errors.Is() compatibility.
type InvalidURLError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *InvalidURLError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("invalid repository URL: %s", e.Reason)
	}
	return fmt.Sprintf("invalid repository URL %q: %s", e.URL, e.Reason)
}

// Unwrap returns ErrInvalidURL for errors.Is() compatibility.
func (e *InvalidURLError) Unwrap() error { return ErrInvalidURL }

// ValidateURL checks that raw is a well-formed repository URL: an http, https,
// git or ssh URL, or the scp-like git@host:path form.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &InvalidURLError{Reason: "repository URL cannot be empty"}
	}
	if m := scpLikeURL.FindStringSubmatch(raw); m != nil {
		if hasDotSegment(m[2]) {
			return &InvalidURLError{URL: raw, Reason: "path must not contain . or .. segments"}
		}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidURLError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme == "" {
		return &InvalidURLError{URL: raw, Reason: "must include a scheme (http://, https://, or git@)"}
	}
	if !slices.Contains(allowedSchemes, strings.ToLower(u.Scheme)) {
		return &InvalidURLError{
			URL:    raw,
			Reason: fmt.Sprintf("unsupported scheme %q, must be one of: %s or git@ format", u.Scheme, strings.Join(allowedSchemes, ", ")),
		}
	}
	if u.Host == "" {
		return &InvalidURLError{URL: raw, Reason: "missing host"}
	}
	if hasDotSegment(u.Path) {
		return &InvalidURLError{URL: raw, Reason: "path must not contain . or .. segments"}
	}
	return nil
}

// hasDotSegment reports whether p has a "." or ".." element.
func hasDotSegment(p string) bool {
	for seg := range strings.FieldsFuncSeq(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// RepoName returns the directory name a clone of raw is placed in: the last path
// element with any .git suffix removed. Names that would leave the workspace
// directory fall back to cloned_repo.
func RepoName(raw string) string {
	raw = strings.TrimSpace(raw)
	var p string
	if m := scpLikeURL.FindStringSubmatch(raw); m != nil {
		p = m[2]
	} else if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	name := strings.TrimSuffix(path.Base(strings.TrimRight(p, "/")), ".git")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fallbackRepoName
	}
	return name
}

// ParseGitHubURL extracts the organization and repository from
// https://github.com/org/repo(.git), git@github.com:org/repo.git or org/repo.
func ParseGitHubURL(raw string) (org, repo string, err error) {
	raw = strings.TrimSpace(raw)

	var p string
	switch {
	case shortGitHubRef.MatchString(raw):
		p = raw
	case scpLikeURL.MatchString(raw):
		m := scpLikeURL.FindStringSubmatch(raw)
		if !strings.EqualFold(m[1], "github.com") {
			return "", "", fmt.Errorf("%w: %s", ErrNotGitHub, raw)
		}
		p = m[2]
	default:
		u, perr := url.Parse(raw)
		if perr != nil || u.Host == "" {
			return "", "", &InvalidURLError{URL: raw, Reason: "expected https://github.com/org/repo, git@github.com:org/repo.git or org/repo"}
		}
		if host := strings.TrimPrefix(strings.ToLower(u.Host), "www."); host != "github.com" {
			return "", "", fmt.Errorf("%w: %s", ErrNotGitHub, raw)
		}
		p = u.Path
	}

	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &InvalidURLError{URL: raw, Reason: "missing organization or repository name"}
	}
	org, repo = parts[0], strings.TrimSuffix(parts[1], ".git")
	if hasDotSegment(org+"/"+repo) || repo == "" {
		return "", "", &InvalidURLError{URL: raw, Reason: "organization and repository must be plain names"}
	}
	return org, repo, nil
}
