// Package snapshot keeps copies of a release's composed manifests so a
// previous set can be restored.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cameronsjo/shipwright/internal/fileutil"
)

const (
	// Prefix starts every snapshot directory name.
	Prefix = "snapshot-"

	// TimeFormat stamps snapshot names; nanoseconds keep same-second writes apart.
	TimeFormat = "20060102-150405.000000000"

	// DefaultKeep is how many snapshots survive Cleanup.
	DefaultKeep = 10
)

// ErrNotFound indicates the named snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Info describes one snapshot.
type Info struct {
	Name    string
	Path    string
	Created time.Time
	Files   []string
}

// Store snapshots the files of Source under Dir.
type Store struct {
	// Source is the directory being snapshotted (the manifests directory).
	Source string

	// Dir holds one subdirectory per snapshot.
	Dir string

	// Keep bounds retained snapshots. Zero means DefaultKeep.
	Keep int

	// Now stamps snapshot names. Nil means time.Now.
	Now func() time.Time
}

// New creates a store for source keeping snapshots in stateDir/snapshots.
func New(source, stateDir string) *Store {
	return &Store{Source: source, Dir: filepath.Join(stateDir, "snapshots")}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) keep() int {
	if s.Keep > 0 {
		return s.Keep
	}
	return DefaultKeep
}

// Create copies the current Source files into a new snapshot.
// Returns "" when there is nothing to snapshot.
func (s *Store) Create() (string, error) {
	files, err := yamlFiles(s.Source)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	name := Prefix + s.now().UTC().Format(TimeFormat)
	path := filepath.Join(s.Dir, name)

	if err := copyFiles(s.Source, path, files); err != nil {
		if cleanupErr := os.RemoveAll(path); cleanupErr != nil {
			return "", fmt.Errorf("%w (cleanup also failed: %v)", err, cleanupErr)
		}
		return "", err
	}

	if err := s.Cleanup(); err != nil {
		slog.Warn("snapshot cleanup failed", "dir", s.Dir, "error", err)
	}

	return name, nil
}

// List returns snapshots newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		created, err := time.Parse(TimeFormat, strings.TrimPrefix(entry.Name(), Prefix))
		if err != nil {
			slog.Debug("skipping snapshot with unparseable name", "name", entry.Name())
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		files, err := yamlFiles(path)
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Name: entry.Name(), Path: path, Created: created, Files: files})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

// Restore replaces Source with the named snapshot. The current Source is
// snapshotted first, and the swap goes through a temp directory so a
// failure leaves Source as it was.
func (s *Store) Restore(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	from := filepath.Join(s.Dir, name)
	if !fileutil.IsDir(from) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	files, err := yamlFiles(from)
	if err != nil {
		return err
	}

	id := uuid.New().String()[:8]
	temp := s.Source + ".restore-" + id
	old := s.Source + ".old-" + id

	// Staged before the pre-restore snapshot, whose cleanup may remove from.
	if err := copyFiles(from, temp, files); err != nil {
		os.RemoveAll(temp)
		return err
	}

	if _, err := s.Create(); err != nil {
		os.RemoveAll(temp)
		return fmt.Errorf("snapshot before restore: %w", err)
	}

	exists := fileutil.Exists(s.Source)
	if exists {
		if err := os.Rename(s.Source, old); err != nil {
			os.RemoveAll(temp)
			return fmt.Errorf("move current manifests aside: %w", err)
		}
	}

	if err := os.Rename(temp, s.Source); err != nil {
		if exists {
			if recoverErr := os.Rename(old, s.Source); recoverErr != nil {
				os.RemoveAll(temp)
				return fmt.Errorf("install snapshot: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(temp)
		return fmt.Errorf("install snapshot: %w", err)
	}

	if exists {
		os.RemoveAll(old)
	}
	return nil
}

// Cleanup removes snapshots beyond the retention limit, oldest first.
func (s *Store) Cleanup() error {
	snaps, err := s.List()
	if err != nil {
		return err
	}
	if len(snaps) <= s.keep() {
		return nil
	}

	var errs []error
	for _, snap := range snaps[s.keep():] {
		if err := os.RemoveAll(snap.Path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", snap.Name, err))
		}
	}
	return errors.Join(errs...)
}

// validName reports whether name is a bare snapshot directory name.
func validName(name string) bool {
	return strings.HasPrefix(name, Prefix) &&
		filepath.Base(name) == name &&
		!strings.ContainsAny(name, `/\`) &&
		name != Prefix
}

// yamlFiles lists the *.yml files directly in dir, sorted.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".yml") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

func copyFiles(from, to string, files []string) error {
	if err := os.MkdirAll(to, 0755); err != nil {
		return fmt.Errorf("create %s: %w", to, err)
	}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(from, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := fileutil.WriteFile(filepath.Join(to, name), data, 0644); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return nil
}
