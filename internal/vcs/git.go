// Package vcs records scaffolded trees in a git repository.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultAuthor signs commits when no author is configured.
var DefaultAuthor = Author{Name: "shipwright", Email: "shipwright@localhost"}

// Author identifies who made a commit.
type Author struct {
	Name  string
	Email string
}

// AuthorFromEnvironment returns an author named after the current OS user,
// or DefaultAuthor when that cannot be determined.
func AuthorFromEnvironment() Author {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return DefaultAuthor
	}
	name := u.Name
	if name == "" {
		name = u.Username
	}
	return Author{Name: name, Email: u.Username + "@localhost"}
}

// Git initializes repositories and commits their contents.
type Git struct {
	Author Author

	// Now stamps commits. Nil means time.Now.
	Now func() time.Time
}

// New creates a Git that commits as author.
func New(author Author) *Git {
	return &Git{Author: author}
}

func (g *Git) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// InitAndCommit initializes a repository in dir (reusing one that exists),
// stages every file not ignored by .gitignore, and commits it.
// Returns the new commit hash.
func (g *Git) InitAndCommit(ctx context.Context, dir, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := git.PlainInit(dir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(dir)
	}
	if err != nil {
		return "", fmt.Errorf("git init %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("git worktree: %w", err)
	}

	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return "", fmt.Errorf("read .gitignore: %w", err)
	}
	wt.Excludes = append(wt.Excludes, patterns...)

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.Author.Name,
			Email: g.Author.Email,
			When:  g.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	return hash.String(), nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := git.PlainOpen(dir)
	return err == nil
}

// HeadMessage returns the message of the commit at HEAD.
func HeadMessage(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("git open %s: %w", dir, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("git head: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return commit.Message, nil
}

// TrackedFiles returns the paths in the HEAD commit.
func TrackedFiles(dir string) ([]string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("git open %s: %w", dir, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("git head: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	files, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	err = files.ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	return paths, err
}
