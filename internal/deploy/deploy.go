// Package deploy builds deployment manifests for a release.
//
// A run asks the director who it is, resolves a stemcell, then composes
// the release's manifest fragments with the run metadata and any overlays.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/director"
	"github.com/cameronsjo/shipwright/internal/layer"
	"github.com/cameronsjo/shipwright/internal/lock"
	"github.com/cameronsjo/shipwright/internal/manifest"
	"github.com/cameronsjo/shipwright/internal/snapshot"
	"github.com/cameronsjo/shipwright/internal/stemcell"
)

// Target identifies the director a manifest is built for.
type Target interface {
	Info(ctx context.Context) (director.Info, error)
}

// Director is a Target that also serves the stemcell catalog.
type Director interface {
	Target
	stemcell.Catalog
}

var _ Director = (*director.Client)(nil)

// Pipeline composes manifests for one release.
type Pipeline struct {
	Release  *config.Release
	Target   Target
	Resolver *stemcell.Resolver
	Logger   *slog.Logger
}

// New wires a pipeline for release against d, caching stemcells in the
// release's .stemcells directory.
func New(release *config.Release, d Director, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	resolver := stemcell.NewResolver(d, release.StemcellCacheDir())
	resolver.Logger = logger

	return &Pipeline{
		Release:  release,
		Target:   d,
		Resolver: resolver,
		Logger:   logger,
	}
}

// StemcellOptions selects a stemcell.
type StemcellOptions struct {
	Infrastructure string
	OS             string
	Version        string
}

func (o StemcellOptions) os() string {
	if o.OS == "" {
		return stemcell.Ubuntu
	}
	return o.OS
}

// ManifestOptions controls a manifest build.
type ManifestOptions struct {
	StemcellOptions

	// Environment names the deployment. Defaults to <release>-<infrastructure>.
	Environment string

	SecurityGroup  string
	ReleaseVersion string

	// Overlays are extra fragment files applied last, in order.
	Overlays []string
}

// Outcome is a composed manifest.
type Outcome struct {
	Environment string
	Stemcell    stemcell.Record
	Document    manifest.Document

	// Path is where Write put the manifest. Empty until written.
	Path string
}

// Stemcell resolves the stemcell for opts, uploading one if the director
// has none.
func (p *Pipeline) Stemcell(ctx context.Context, opts StemcellOptions) (stemcell.Record, error) {
	if err := stemcell.Validate(opts.Infrastructure, opts.os()); err != nil {
		return stemcell.Record{}, err
	}
	if _, err := p.info(ctx); err != nil {
		return stemcell.Record{}, err
	}
	return p.Resolver.Resolve(ctx, opts.Infrastructure, opts.os(), opts.Version)
}

// Build composes the manifest for opts without writing it.
func (p *Pipeline) Build(ctx context.Context, opts ManifestOptions) (*Outcome, error) {
	infra := opts.Infrastructure
	if err := stemcell.Validate(infra, opts.os()); err != nil {
		return nil, err
	}

	info, err := p.info(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := p.Resolver.Resolve(ctx, infra, opts.os(), opts.Version)
	if err != nil {
		return nil, err
	}

	env := opts.Environment
	if env == "" {
		env = p.Release.Name + "-" + infra
	}

	meta := Metadata{
		Environment:    env,
		Stemcell:       rec,
		SecurityGroup:  opts.SecurityGroup,
		ReleaseName:    p.Release.Name,
		ReleaseVersion: opts.ReleaseVersion,
		DirectorUUID:   info.UUID,
	}

	templates := p.Release.TemplatesDir()
	store := layer.NewStore()
	if _, err := store.Load(filepath.Join(templates, "deployment.yml")); err != nil {
		return nil, err
	}
	store.Add("run metadata", meta.Document())
	if err := store.LoadAll(
		filepath.Join(templates, "jobs.yml"),
		filepath.Join(templates, "infrastructure-"+infra+".yml"),
	); err != nil {
		return nil, err
	}
	base := store.Len()
	if err := store.LoadAll(opts.Overlays...); err != nil {
		return nil, err
	}

	all := store.Layers()
	for _, l := range all {
		p.Logger.Debug("manifest layer", "source", l.Source, "precedence", l.Precedence, "placeholders", len(l.Placeholders))
	}

	doc, err := manifest.Compose(all[:base], all[base:])
	if err != nil {
		var cerr *manifest.CompositionError
		if errors.As(err, &cerr) {
			p.Logger.Debug("composition failed", "environment", env, "paths", cerr.Paths())
		}
		return nil, err
	}

	return &Outcome{
		Environment: env,
		Stemcell:    rec,
		Document:    manifest.WithoutKeys(doc, "meta"),
	}, nil
}

// Write stores the outcome in manifests/<environment>.yml under the
// manifest lock.
func (p *Pipeline) Write(out *Outcome) error {
	path := filepath.Join(p.Release.ManifestsDir(), out.Environment+".yml")
	err := lock.With(p.Release.StateDir(), "manifest", func() error {
		name, err := Snapshots(p.Release).Create()
		if err != nil {
			return fmt.Errorf("snapshot manifests: %w", err)
		}
		if name != "" {
			p.Logger.Debug("manifests snapshotted", "snapshot", name)
		}
		return manifest.WriteFile(path, out.Document)
	})
	if err != nil {
		return err
	}
	out.Path = path
	p.Logger.Debug("manifest written", "path", path)
	return nil
}

// Snapshots returns the manifest history store for release.
func Snapshots(release *config.Release) *snapshot.Store {
	return snapshot.New(release.ManifestsDir(), release.StateDir())
}

// Rollback restores the manifests directory from the named snapshot.
func Rollback(release *config.Release, name string) error {
	return lock.With(release.StateDir(), "manifest", func() error {
		return Snapshots(release).Restore(name)
	})
}

// Print writes the outcome as YAML to w.
func Print(w io.Writer, out *Outcome) error {
	data, err := manifest.Marshal(out.Document)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (p *Pipeline) info(ctx context.Context) (director.Info, error) {
	info, err := p.Target.Info(ctx)
	if err != nil {
		return director.Info{}, fmt.Errorf("query director: %w", err)
	}
	p.Logger.Debug("director", "name", info.Name, "uuid", info.UUID, "cpi", info.CPI)
	return info, nil
}
