// Package scaffold materializes release, job, and package trees from
// embedded templates.
//
// Every file in a tree is rendered from one naming.Binding before anything
// is written, so a bad template or a failed precondition leaves the
// filesystem untouched.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cameronsjo/shipwright/internal/fileutil"
	"github.com/cameronsjo/shipwright/internal/naming"
)

var (
	// ErrPrecondition indicates the destination is not in a state that can
	// be scaffolded into. Nothing is written.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotSupported indicates a kind that cannot be scaffolded.
	ErrNotSupported = errors.New("not supported yet")

	// ErrUnresolvedPlaceholder indicates rendered output still contains
	// template delimiters.
	ErrUnresolvedPlaceholder = errors.New("unresolved template placeholder")
)

// Kind is the type of artifact to materialize.
type Kind int

const (
	Release Kind = iota
	Job
	Package
	Src
)

func (k Kind) String() string {
	switch k {
	case Release:
		return "release"
	case Job:
		return "job"
	case Package:
		return "package"
	case Src:
		return "src"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Policy decides what happens to files that already exist.
type Policy int

const (
	// PolicyPreserve keeps existing files untouched and reports them as skipped.
	PolicyPreserve Policy = iota

	// PolicyOverwrite replaces existing files.
	PolicyOverwrite
)

func (p Policy) String() string {
	if p == PolicyOverwrite {
		return "overwrite"
	}
	return "preserve"
}

// Committer records a freshly scaffolded release in version control.
type Committer interface {
	InitAndCommit(ctx context.Context, dir, message string) (string, error)
}

// Result describes what a materialization did. Paths are slash-separated
// and relative to Root.
type Result struct {
	Kind        Kind
	Root        string
	Dirs        []string
	Created     []string
	Skipped     []string
	Overwritten []string

	// Commit is the hash of the initial commit, for releases.
	Commit string
}

// Materializer writes artifact trees.
type Materializer struct {
	Policy Policy

	// Committer commits new releases. Nil skips version control.
	Committer Committer

	// Author appears in generated license text.
	Author string

	// Year appears in generated license text. Zero leaves it out.
	Year int
}

// Materialize renders the artifact of kind for binding under root and
// writes it.
//
// For Release, root is the project directory itself. For Job and Package,
// root is the release root the artifact is added to.
func (m *Materializer) Materialize(ctx context.Context, kind Kind, binding naming.Binding, root string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		artifact *Artifact
		err      error
	)
	switch kind {
	case Release:
		artifact, err = m.releaseArtifact(binding, root)
	case Job:
		artifact, err = m.jobArtifact(binding, root)
	case Package:
		artifact, err = m.packageArtifact(binding, root)
	case Src:
		return nil, fmt.Errorf("src %s: src scaffolding is %w", binding, ErrNotSupported)
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrNotSupported)
	}
	if err != nil {
		return nil, err
	}

	rendered, err := artifact.Render()
	if err != nil {
		return nil, err
	}

	result, err := m.write(root, artifact, rendered)
	if err != nil {
		return result, err
	}

	if kind == Release && m.Committer != nil {
		msg := fmt.Sprintf("Initial scaffold for %s release", binding.Raw)
		hash, err := m.Committer.InitAndCommit(ctx, root, msg)
		if err != nil {
			return result, fmt.Errorf("commit %s: %w", root, err)
		}
		result.Commit = hash
	}

	return result, nil
}

// write creates directories and files according to the policy.
func (m *Materializer) write(root string, artifact *Artifact, rendered map[string][]byte) (*Result, error) {
	result := &Result{Kind: artifact.Kind, Root: root}

	for _, dir := range artifact.Dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0755); err != nil {
			return result, fmt.Errorf("create %s: %w", dir, err)
		}
		result.Dirs = append(result.Dirs, dir)
	}

	for _, f := range artifact.Files {
		dest := filepath.Join(root, filepath.FromSlash(f.Path))
		existed := fileutil.Exists(dest)

		if existed && m.Policy == PolicyPreserve {
			result.Skipped = append(result.Skipped, f.Path)
			continue
		}

		if err := fileutil.WriteFile(dest, rendered[f.Path], f.Mode); err != nil {
			return result, fmt.Errorf("write %s: %w", f.Path, err)
		}

		if existed {
			result.Overwritten = append(result.Overwritten, f.Path)
		} else {
			result.Created = append(result.Created, f.Path)
		}
	}

	return result, nil
}

// checkEmptyOrMissing fails unless dir does not exist or is an empty directory.
func checkEmptyOrMissing(dir string) error {
	if !fileutil.Exists(dir) {
		return nil
	}
	if !fileutil.IsDir(dir) {
		return fmt.Errorf("%w: %s exists and is not a directory", ErrPrecondition, dir)
	}
	empty, err := fileutil.IsEmptyDir(dir)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", dir, err)
	}
	if !empty {
		return fmt.Errorf("%w: %s already exists and is not empty", ErrPrecondition, dir)
	}
	return nil
}

// within joins slash-separated segments into a relative artifact path.
func within(parts ...string) string {
	return path.Join(parts...)
}

// checkRendered fails if output still carries template delimiters.
func checkRendered(name string, out []byte) error {
	s := string(out)
	for _, delim := range []string{"{{", "}}"} {
		if i := strings.Index(s, delim); i >= 0 {
			line := strings.Count(s[:i], "\n") + 1
			return fmt.Errorf("%w: %q in %s line %d", ErrUnresolvedPlaceholder, delim, name, line)
		}
	}
	return nil
}
