package cmd

import (
	"errors"
	"fmt"
)

// ErrUsage indicates the command line could not be understood.
var ErrUsage = errors.New("usage error")

// Plan is what one invocation scaffolds, in execution order.
type Plan struct {
	Release  string
	Jobs     []string
	Packages []string
	Srcs     []string
}

// target returns the collection verb fills.
func (p *Plan) target(verb string, releases *[]string) *[]string {
	switch verb {
	case "release":
		return releases
	case "job", "jobs":
		return &p.Jobs
	case "package", "packages":
		return &p.Packages
	case "src":
		return &p.Srcs
	}
	return nil
}

func isVerb(arg string) bool {
	switch arg {
	case "release", "job", "jobs", "package", "packages", "src":
		return true
	}
	return false
}

// parseVerbs scans args left to right. A verb switches the active
// collection; any other token is a name appended to it.
func parseVerbs(args []string) (*Plan, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: expected a verb (release, job, package, src)", ErrUsage)
	}

	plan := &Plan{}
	var releases []string

	var (
		active     *[]string
		activeVerb string
		names      int
	)
	finish := func() error {
		if activeVerb != "" && names == 0 {
			return fmt.Errorf("%w: %q needs at least one name", ErrUsage, activeVerb)
		}
		return nil
	}

	for _, arg := range args {
		if isVerb(arg) {
			if err := finish(); err != nil {
				return nil, err
			}
			active = plan.target(arg, &releases)
			activeVerb = arg
			names = 0
			continue
		}

		if active == nil {
			return nil, fmt.Errorf("%w: %q given before any verb", ErrUsage, arg)
		}
		*active = append(*active, arg)
		names++
	}
	if err := finish(); err != nil {
		return nil, err
	}

	if len(releases) > 1 {
		return nil, fmt.Errorf("%w: only one release can be created at a time (got %d)", ErrUsage, len(releases))
	}
	if len(releases) == 1 {
		plan.Release = releases[0]
	}

	return plan, nil
}
