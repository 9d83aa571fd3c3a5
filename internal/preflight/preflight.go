// Package preflight checks for the external tools a scaffolded release uses.
package preflight

import (
	"os/exec"
)

// BinaryCheck is an external tool and why it is needed.
type BinaryCheck struct {
	Name        string
	Purpose     string
	Required    bool // false = warning only
	InstallHint string
}

// Binaries used by templates/make_manifest and the release workflow.
var binaries = []BinaryCheck{
	{
		Name:        "bosh",
		Purpose:     "create and upload releases, deploy manifests",
		Required:    true,
		InstallHint: "https://bosh.io/docs/cli-v2-install/",
	},
	{
		Name:        "git",
		Purpose:     "day-to-day work on the release repository",
		Required:    false,
		InstallHint: "https://git-scm.com/downloads",
	},
	{
		Name:        "spruce",
		Purpose:     "inspect merged manifests by hand",
		Required:    false,
		InstallHint: "https://github.com/geofffranks/spruce/releases",
	},
}

// LookPathFunc resolves a binary name to a path.
type LookPathFunc func(name string) (string, error)

// Checker checks binaries with a LookPathFunc.
type Checker struct {
	LookPath LookPathFunc
}

// New returns a Checker that searches PATH.
func New() *Checker {
	return &Checker{LookPath: exec.LookPath}
}

// Result is the outcome for one binary.
type Result struct {
	BinaryCheck
	Path  string
	Found bool
}

// Run checks every known binary in order.
func (c *Checker) Run() []Result {
	results := make([]Result, 0, len(binaries))
	for _, bin := range binaries {
		path, err := c.LookPath(bin.Name)
		results = append(results, Result{BinaryCheck: bin, Path: path, Found: err == nil})
	}
	return results
}

// CheckAll reports missing required binaries as errors and missing
// optional ones as warnings, each formatted "name: hint".
func (c *Checker) CheckAll() (warnings []string, errors []string) {
	for _, r := range c.Run() {
		if r.Found {
			continue
		}
		line := r.Name + ": " + r.InstallHint
		if r.Required {
			errors = append(errors, line)
		} else {
			warnings = append(warnings, line)
		}
	}
	return warnings, errors
}

// Binaries returns the checked binaries.
func Binaries() []BinaryCheck {
	out := make([]BinaryCheck, len(binaries))
	copy(out, binaries)
	return out
}

// IsBinaryAvailable reports whether name is on PATH.
func IsBinaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
