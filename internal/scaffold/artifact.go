package scaffold

import (
	"fmt"
	"hash/fnv"
	"io/fs"
	"path/filepath"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/fileutil"
	"github.com/cameronsjo/shipwright/internal/naming"
)

// File is one rendered file of an artifact.
type File struct {
	// Path is slash-separated and relative to the artifact root.
	Path string

	// Template names an embedded template. Empty renders an empty file.
	Template string

	Mode fs.FileMode
}

// Artifact is the planned tree for one kind and binding. It is built per
// invocation and never persisted.
type Artifact struct {
	Kind    Kind
	Binding naming.Binding
	Dirs    []string
	Files   []File

	// Params is the typed data every template of the artifact renders with.
	Params any
}

// ReleaseParams feeds release templates.
type ReleaseParams struct {
	// Name is the release name used inside the project.
	Name string

	// Dir is the project directory name.
	Dir string

	Property string
	Author   string
	Year     int

	// Subnet is the third octet of the warden network.
	Subnet int
}

// JobParams feeds job templates.
type JobParams struct {
	Name     string
	Property string
	Release  string
}

// PackageParams feeds package templates.
type PackageParams struct {
	Name string
}

const (
	modeFile   fs.FileMode = 0644
	modeScript fs.FileMode = 0755
)

var releaseDirs = []string{
	"templates", "config", "packages", "src", "blobs", "jobs", "manifests", ".stemcells", "docs",
}

func (m *Materializer) releaseArtifact(b naming.Binding, root string) (*Artifact, error) {
	if err := checkEmptyOrMissing(root); err != nil {
		return nil, err
	}

	return &Artifact{
		Kind:    Release,
		Binding: b,
		Dirs:    releaseDirs,
		Files: []File{
			{Path: "NOTES.md", Template: "release/NOTES.md.tmpl", Mode: modeFile},
			{Path: "LICENSE", Template: "release/LICENSE.tmpl", Mode: modeFile},
			{Path: "README.md", Template: "release/README.md.tmpl", Mode: modeFile},
			{Path: ".gitignore", Template: "release/gitignore.tmpl", Mode: modeFile},
			{Path: "config/final.yml", Template: "release/final.yml.tmpl", Mode: modeFile},
			{Path: "config/dev.yml", Template: "release/dev.yml.tmpl", Mode: modeFile},
			{Path: "config/blobs.yml", Template: "release/blobs.yml.tmpl", Mode: modeFile},
			{Path: "config/private.yml", Template: "release/private.yml.tmpl", Mode: 0600},
			{Path: "templates/deployment.yml", Template: "release/deployment.yml.tmpl", Mode: modeFile},
			{Path: "templates/jobs.yml", Template: "release/jobs.yml.tmpl", Mode: modeFile},
			{Path: "templates/infrastructure-warden.yml", Template: "release/infrastructure-warden.yml.tmpl", Mode: modeFile},
			{Path: "templates/infrastructure-aws-ec2.yml", Template: "release/infrastructure-aws-ec2.yml.tmpl", Mode: modeFile},
			{Path: "templates/make_manifest", Template: "release/make_manifest.tmpl", Mode: modeScript},
		},
		Params: ReleaseParams{
			Name:     b.Raw,
			Dir:      filepath.Base(root),
			Property: b.Property,
			Author:   m.Author,
			Year:     m.Year,
			Subnet:   subnetFor(b.Raw),
		},
	}, nil
}

// requireReleaseDir fails unless dir, a directory of the release at root,
// already exists.
func requireReleaseDir(dir string) error {
	if !fileutil.IsDir(dir) {
		return fmt.Errorf("%w: %s is not a directory; run inside a release or create the release first", ErrPrecondition, dir)
	}
	return nil
}

func (m *Materializer) jobArtifact(b naming.Binding, root string) (*Artifact, error) {
	rel := &config.Release{Root: root}
	if err := requireReleaseDir(rel.JobsDir()); err != nil {
		return nil, err
	}

	base := within("jobs", b.Path)
	return &Artifact{
		Kind:    Job,
		Binding: b,
		Dirs: []string{
			within(base, "templates", "bin"),
			within(base, "templates", "config"),
			within(base, "templates", "helpers"),
		},
		Files: []File{
			{Path: within(base, "README.md"), Template: "job/README.md.tmpl", Mode: modeFile},
			{Path: within(base, "templates", "bin", "ctl"), Template: "job/ctl.tmpl", Mode: modeScript},
			{Path: within(base, "templates", "helpers", "ctl_setup.sh"), Template: "job/ctl_setup.sh.tmpl", Mode: modeScript},
			{Path: within(base, "templates", "helpers", "ctl_utils.sh"), Template: "job/ctl_utils.sh.tmpl", Mode: modeScript},
			{Path: within(base, "templates", "config", ".gitkeep"), Mode: modeFile},
			{Path: within(base, "monit"), Template: "job/monit.tmpl", Mode: modeFile},
			{Path: within(base, "spec"), Template: "job/spec.tmpl", Mode: modeFile},
		},
		Params: JobParams{
			Name:     b.Path,
			Property: b.Property,
			Release:  releaseNameAt(root),
		},
	}, nil
}

func (m *Materializer) packageArtifact(b naming.Binding, root string) (*Artifact, error) {
	rel := &config.Release{Root: root}
	if err := requireReleaseDir(rel.PackagesDir()); err != nil {
		return nil, err
	}

	pkg := within("packages", b.Path)
	src := within("src", b.Path)
	blobs := within("blobs", b.Path)

	return &Artifact{
		Kind:    Package,
		Binding: b,
		Dirs:    []string{pkg, src, blobs},
		Files: []File{
			{Path: within(pkg, ".gitkeep"), Mode: modeFile},
			{Path: within(src, ".gitkeep"), Mode: modeFile},
			{Path: within(blobs, ".gitkeep"), Mode: modeFile},
			{Path: within(pkg, "README.md"), Template: "package/README.md.tmpl", Mode: modeFile},
			{Path: within(pkg, "packaging"), Template: "package/packaging.tmpl", Mode: modeScript},
			{Path: within(pkg, "prepare"), Template: "package/prepare.tmpl", Mode: modeScript},
			{Path: within(pkg, "spec"), Template: "package/spec.tmpl", Mode: modeFile},
		},
		Params: PackageParams{Name: b.Path},
	}, nil
}

// Render renders every file of the artifact. Nothing is written.
func (a *Artifact) Render() (map[string][]byte, error) {
	out := make(map[string][]byte, len(a.Files))
	for _, f := range a.Files {
		if _, dup := out[f.Path]; dup {
			return nil, fmt.Errorf("%s %s: duplicate file %s", a.Kind, a.Binding, f.Path)
		}
		if f.Template == "" {
			out[f.Path] = []byte{}
			continue
		}
		data, err := render(f.Template, a.Params)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", a.Kind, a.Binding, err)
		}
		out[f.Path] = data
	}
	return out, nil
}

// subnetFor picks a stable warden subnet octet in 10..249 for a release name.
func subnetFor(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return 10 + int(h.Sum32()%240)
}
