// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitTime keeps fixture commit hashes stable across runs.
var commitTime = time.Unix(1_700_000_000, 0)

// InitRepo creates a git repository at dir holding files in a single commit
// and returns the commit hash.
func InitRepo(t testing.TB, dir string, files map[string]string) string {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init %s: %v", dir, err)
	}
	WriteTree(t, dir, files)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	paths := make([]string, 0, len(files))
	for rel := range files {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	for _, rel := range paths {
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("git add %s: %v", rel, err)
		}
	}

	sig := &object.Signature{Name: "stagecraft", Email: "stagecraft@example.com", When: commitTime}
	hash, err := wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("git commit: %v", err)
	}
	return hash.String()
}
