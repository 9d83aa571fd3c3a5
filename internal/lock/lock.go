// Package lock serializes manifest writes across shipwright processes.
package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// errContended is returned by tryLock when the lock is taken.
var errContended = errors.New("contended")

// Lock is an advisory flock on <stateDir>/locks/<name>.lock.
type Lock struct {
	name string
	path string
	file *os.File
}

// New creates a lock named name under stateDir. Nothing is touched until
// Acquire.
func New(stateDir, name string) *Lock {
	return &Lock{
		name: name,
		path: filepath.Join(stateDir, "locks", name+".lock"),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It fails with ErrLocked if
// another process holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, errContended) {
			holder := readHolder(l.path)
			return fmt.Errorf("%w: %s (pid %s)", ErrLocked, l.name, holder)
		}
		return fmt.Errorf("acquire %s lock: %w", l.name, err)
	}

	// Holder pid, for the error message of the next contender.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	pid := strings.TrimSpace(string(data))
	if _, err := strconv.Atoi(pid); err != nil {
		return "unknown"
	}
	return pid
}

// Release drops the lock and removes the lock file. Releasing an unheld
// lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()

	if err := unlock(l.file); err != nil {
		l.file.Close()
		return fmt.Errorf("release %s lock: %w", l.name, err)
	}

	l.file.Close()
	os.Remove(l.path)
	return nil
}

// With runs fn while holding the lock named name under stateDir.
func With(stateDir, name string, fn func() error) error {
	l := New(stateDir, name)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	slog.Debug("lock acquired", "name", name, "path", l.Path())

	return fn()
}
