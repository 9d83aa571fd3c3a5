// Package naming derives the name forms used across generated artifacts.
package naming

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyName indicates no name was supplied.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrIllegalName indicates a name that cannot be used as a path segment.
	ErrIllegalName = errors.New("name is not a valid path segment")
)

// releaseSuffixes are stripped from release directory names to get the release name.
// Longest first so "-boshrelease" wins over "-release".
var releaseSuffixes = []string{"-boshrelease", "-release"}

// Binding is one user-supplied name plus the forms derived from it.
// It is a value type; copies are safe to pass around.
type Binding struct {
	// Raw is the name as given.
	Raw string

	// Path is the form used for directory and file names.
	Path string

	// Property is the form used in configuration property identifiers.
	Property string
}

// String returns the raw name.
func (b Binding) String() string {
	return b.Raw
}

// Normalize builds a Binding from a raw name.
// Inputs are expected to be lowercase path-safe tokens; only emptiness and
// path separators are checked.
func Normalize(raw string) (Binding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Binding{}, ErrEmptyName
	}
	if raw == "." || raw == ".." || strings.ContainsAny(raw, "/\\\x00") {
		return Binding{}, fmt.Errorf("%w: %q", ErrIllegalName, raw)
	}

	return Binding{
		Raw:      raw,
		Path:     raw,
		Property: PropertyForm(raw),
	}, nil
}

// PropertyForm replaces every "-" with "_" and leaves everything else alone.
func PropertyForm(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// TrimReleaseSuffix strips a trailing "-boshrelease" or "-release".
// A name that is only the suffix is returned unchanged.
func TrimReleaseSuffix(name string) string {
	for _, suffix := range releaseSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// NormalizeRelease splits a release argument into the project directory name
// (kept as given) and the binding used inside the project.
//
//	widget-boshrelease -> dir "widget-boshrelease", binding "widget"
func NormalizeRelease(raw string) (string, Binding, error) {
	dir, err := Normalize(raw)
	if err != nil {
		return "", Binding{}, err
	}

	binding, err := Normalize(TrimReleaseSuffix(dir.Raw))
	if err != nil {
		return "", Binding{}, err
	}

	return dir.Path, binding, nil
}
