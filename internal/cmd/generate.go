package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/naming"
	"github.com/cameronsjo/shipwright/internal/scaffold"
	"github.com/cameronsjo/shipwright/internal/ui"
	"github.com/cameronsjo/shipwright/internal/vcs"
)

func runScaffold(cmd *cobra.Command, args []string) error {
	plan, err := parseVerbs(args)
	if err != nil {
		return err
	}

	base := dirFlag
	if base == "" {
		if base, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	policy := scaffold.PolicyPreserve
	if forceFlag {
		policy = scaffold.PolicyOverwrite
		ui.Warning("--force: existing files will be overwritten")
	}

	author := vcs.AuthorFromEnvironment()
	m := &scaffold.Materializer{
		Policy:    policy,
		Committer: vcs.New(author),
		Author:    author.Name,
		Year:      time.Now().Year(),
	}

	return executePlan(cmd.Context(), m, plan, base)
}

// executePlan materializes the release first, then each job, package and
// src. Jobs and packages land in the new release when one was created,
// otherwise in the release enclosing base.
func executePlan(ctx context.Context, m *scaffold.Materializer, plan *Plan, base string) error {
	var root string

	if plan.Release != "" {
		dir, binding, err := naming.NormalizeRelease(plan.Release)
		if err != nil {
			return fmt.Errorf("%w: release %q: %v", ErrUsage, plan.Release, err)
		}
		root = filepath.Join(base, dir)

		ui.Ship("Creating release %s in %s", binding, root)
		result, err := m.Materialize(ctx, scaffold.Release, binding, root)
		report(result)
		if err != nil {
			return err
		}
		if result.Commit != "" {
			ui.Info("Initial commit %s", result.Commit[:min(7, len(result.Commit))])
		}
	} else {
		root = releaseRootFrom(base)
	}

	steps := []struct {
		kind  scaffold.Kind
		names []string
	}{
		{scaffold.Job, plan.Jobs},
		{scaffold.Package, plan.Packages},
		{scaffold.Src, plan.Srcs},
	}

	for _, step := range steps {
		for _, name := range step.names {
			binding, err := naming.Normalize(name)
			if err != nil {
				return fmt.Errorf("%w: %s %q: %v", ErrUsage, step.kind, name, err)
			}

			ui.Package("Adding %s %s", step.kind, binding)
			result, err := m.Materialize(ctx, step.kind, binding, root)
			report(result)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// releaseRootFrom finds the release enclosing dir, or dir itself.
func releaseRootFrom(dir string) string {
	root, err := config.FindRootFrom(dir)
	if err != nil {
		if !errors.Is(err, config.ErrNoReleaseRoot) {
			slog.Debug("release root lookup failed", "dir", dir, "error", err)
		}
		return dir
	}
	return root
}

// report prints file events for a result.
func report(result *scaffold.Result) {
	if result == nil {
		return
	}
	for _, p := range result.Created {
		ui.Create(p)
	}
	for _, p := range result.Overwritten {
		ui.Overwrite(p)
	}
	for _, p := range result.Skipped {
		ui.Skip(p)
	}
	slog.Debug("materialized", "kind", result.Kind, "root", result.Root,
		"dirs", len(result.Dirs), "created", len(result.Created),
		"overwritten", len(result.Overwritten), "skipped", len(result.Skipped))
}
