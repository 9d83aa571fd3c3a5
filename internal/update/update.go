// Package update replaces the running shipwright binary with the latest
// GitHub release.
package update

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	repoOwner = "cameronsjo"
	repoName  = "shipwright"

	// changelogLines bounds Summary output.
	changelogLines = 10
)

// ErrNoReleases indicates the repository has no published releases.
var ErrNoReleases = errors.New("no releases found")

// Release describes an available release.
type Release struct {
	Version     string
	URL         string
	PublishedAt string
	Changelog   string
}

// Summary returns the first lines of the changelog, noting how many were cut.
func (r *Release) Summary() []string {
	if strings.TrimSpace(r.Changelog) == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(r.Changelog, "\n"), "\n")
	if len(lines) <= changelogLines {
		return lines
	}
	out := append([]string{}, lines[:changelogLines]...)
	return append(out, fmt.Sprintf("... (%d more lines)", len(lines)-changelogLines))
}

// Check reports the latest release if it is newer than current.
func Check(ctx context.Context, current string) (*Release, bool, error) {
	latest, err := detect(ctx)
	if err != nil {
		return nil, false, err
	}
	if latest.LessOrEqual(current) {
		return nil, false, nil
	}
	return fromSelfupdate(latest), true, nil
}

// Apply installs the latest release over the running executable.
// Returns nil when current is already the latest.
func Apply(ctx context.Context, current string) (*Release, error) {
	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}

	latest, err := detectWith(ctx, updater)
	if err != nil {
		return nil, err
	}
	if latest.LessOrEqual(current) {
		return nil, nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("install %s: %w", latest.Version(), err)
	}

	return fromSelfupdate(latest), nil
}

// Platform returns GOOS/GOARCH.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create update source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, fmt.Errorf("create updater: %w", err)
	}
	return updater, nil
}

func detect(ctx context.Context) (*selfupdate.Release, error) {
	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}
	return detectWith(ctx, updater)
}

func detectWith(ctx context.Context, updater *selfupdate.Updater) (*selfupdate.Release, error) {
	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w for %s/%s", ErrNoReleases, repoOwner, repoName)
	}
	return latest, nil
}

func fromSelfupdate(r *selfupdate.Release) *Release {
	return &Release{
		Version:     r.Version(),
		URL:         r.URL,
		PublishedAt: r.PublishedAt.Format("2006-01-02"),
		Changelog:   r.ReleaseNotes,
	}
}
