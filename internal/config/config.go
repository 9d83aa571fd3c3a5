// Package config handles release project discovery and director targeting.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/shipwright/internal/naming"
)

var (
	// ErrNoReleaseRoot indicates no release project was found above a directory.
	ErrNoReleaseRoot = errors.New("release root not found (no config/final.yml or jobs/ and packages/ directories)")

	// ErrNotTargeted indicates no director target is configured.
	ErrNotTargeted = errors.New("no director targeted (set SHIPWRIGHT_DIRECTOR_URL or ~/.shipwright/target.yml)")
)

// Release holds the paths of a release project.
type Release struct {
	// Root is the release project directory.
	Root string

	// Name is the release name from config/final.yml, or the directory
	// name with any release suffix stripped.
	Name string
}

// finalConfig is the subset of config/final.yml read here.
type finalConfig struct {
	FinalName string `yaml:"final_name"`
	Name      string `yaml:"name"`
}

// FindRoot searches upward from the current directory for a release root.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return FindRootFrom(dir)
}

// FindRootFrom searches upward from dir for a release root. A release root
// has config/final.yml, or both a jobs/ and a packages/ directory.
func FindRootFrom(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	for {
		if isFile(filepath.Join(dir, "config", "final.yml")) {
			return dir, nil
		}
		if isDir(filepath.Join(dir, "jobs")) && isDir(filepath.Join(dir, "packages")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNoReleaseRoot
}

// Load finds the release root above the working directory and reads its name.
func Load() (*Release, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadRelease(root)
}

// LoadRelease reads the release at root.
func LoadRelease(root string) (*Release, error) {
	rel := &Release{
		Root: root,
		Name: naming.TrimReleaseSuffix(filepath.Base(root)),
	}

	data, err := os.ReadFile(filepath.Join(root, "config", "final.yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return rel, nil
		}
		return nil, fmt.Errorf("read final.yml: %w", err)
	}

	var final finalConfig
	if err := yaml.Unmarshal(data, &final); err != nil {
		return nil, fmt.Errorf("parse final.yml: %w", err)
	}

	switch {
	case final.FinalName != "":
		rel.Name = final.FinalName
	case final.Name != "":
		rel.Name = final.Name
	}

	return rel, nil
}

// JobsDir returns the path to the jobs directory.
func (r *Release) JobsDir() string {
	return filepath.Join(r.Root, "jobs")
}

// PackagesDir returns the path to the packages directory.
func (r *Release) PackagesDir() string {
	return filepath.Join(r.Root, "packages")
}

// TemplatesDir returns the path to the manifest templates directory.
func (r *Release) TemplatesDir() string {
	return filepath.Join(r.Root, "templates")
}

// ManifestsDir returns the path to the composed manifests directory.
func (r *Release) ManifestsDir() string {
	return filepath.Join(r.Root, "manifests")
}

// StemcellCacheDir returns the path to the local stemcell cache.
func (r *Release) StemcellCacheDir() string {
	return filepath.Join(r.Root, ".stemcells")
}

// StateDir returns the path to tool state (locks) inside the release.
func (r *Release) StateDir() string {
	return filepath.Join(r.Root, ".shipwright")
}

// Target identifies the director the deploy pipeline talks to.
type Target struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Insecure bool   `yaml:"insecure"`
}

// Environment variables that override the target file.
const (
	EnvDirectorURL      = "SHIPWRIGHT_DIRECTOR_URL"
	EnvDirectorUser     = "SHIPWRIGHT_DIRECTOR_USER"
	EnvDirectorPassword = "SHIPWRIGHT_DIRECTOR_PASSWORD"
	EnvDirectorInsecure = "SHIPWRIGHT_DIRECTOR_INSECURE"
)

// TargetFile returns the default target file path under home.
func TargetFile(home string) string {
	return filepath.Join(home, ".shipwright", "target.yml")
}

// LoadTarget reads the target file at path (if present) and applies
// environment overrides. Returns ErrNotTargeted when no URL is configured.
func LoadTarget(path string) (*Target, error) {
	target := &Target{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, target); err != nil {
				return nil, fmt.Errorf("parse target file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read target file: %w", err)
		}
	}

	if v := os.Getenv(EnvDirectorURL); v != "" {
		target.URL = v
	}
	if v := os.Getenv(EnvDirectorUser); v != "" {
		target.Username = v
	}
	if v := os.Getenv(EnvDirectorPassword); v != "" {
		target.Password = v
	}
	if v := os.Getenv(EnvDirectorInsecure); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvDirectorInsecure, err)
		}
		target.Insecure = insecure
	}

	if target.URL == "" {
		return nil, ErrNotTargeted
	}

	return target, nil
}

// LoadDefaultTarget loads the target from the user's home directory.
func LoadDefaultTarget() (*Target, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return LoadTarget("")
	}
	return LoadTarget(TargetFile(home))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
