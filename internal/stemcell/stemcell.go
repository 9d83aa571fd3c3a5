// Package stemcell selects the base VM image for a deployment.
//
// Records come from a Catalog (the director in production). The resolver
// picks the highest version matching the infrastructure and OS, and when
// the catalog has none it uploads a cached tarball or the public download
// URL and asks again.
package stemcell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrVersionNotFound indicates an explicit version is not in the catalog.
	ErrVersionNotFound = errors.New("stemcell version not found")

	// ErrNoStemcell indicates no stemcell matched even after uploading one.
	ErrNoStemcell = errors.New("no matching stemcell")
)

// Record is one stemcell known to the catalog.
type Record struct {
	Name           string `json:"name" yaml:"name"`
	Infrastructure string `json:"-" yaml:"-"`
	OS             string `json:"operating_system" yaml:"operating_system"`
	Version        string `json:"version" yaml:"version"`
	CID            string `json:"cid" yaml:"cid,omitempty"`
}

// Catalog lists and registers stemcells.
type Catalog interface {
	// ListStemcells returns every stemcell in listing order.
	ListStemcells(ctx context.Context) ([]Record, error)

	// UploadStemcell registers a stemcell from a local tarball path or a URL.
	UploadStemcell(ctx context.Context, location string) error
}

// Resolver picks stemcells from a Catalog.
type Resolver struct {
	Catalog Catalog

	// CacheDir holds previously downloaded stemcell tarballs. Optional.
	CacheDir string

	// Logger receives progress messages. Nil means slog.Default().
	Logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(catalog Catalog, cacheDir string) *Resolver {
	return &Resolver{Catalog: catalog, CacheDir: cacheDir}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Resolve returns the stemcell for infra and os. An empty version selects
// the highest available; otherwise that exact version must exist.
func (r *Resolver) Resolve(ctx context.Context, infra, osName, version string) (Record, error) {
	if err := Validate(infra, osName); err != nil {
		return Record{}, err
	}

	matches, err := r.matching(ctx, infra, osName)
	if err != nil {
		return Record{}, err
	}

	if version != "" {
		for _, rec := range matches {
			if rec.Version == version {
				return rec, nil
			}
		}
		return Record{}, fmt.Errorf("%w: %s/%s version %s", ErrVersionNotFound, infra, osName, version)
	}

	if best, ok := Latest(matches); ok {
		return best, nil
	}

	location, err := r.uploadLocation(infra, osName)
	if err != nil {
		return Record{}, err
	}

	r.logger().Info("uploading stemcell", "infrastructure", infra, "os", osName, "location", location)
	if err := r.Catalog.UploadStemcell(ctx, location); err != nil {
		return Record{}, fmt.Errorf("upload stemcell: %w", err)
	}

	matches, err = r.matching(ctx, infra, osName)
	if err != nil {
		return Record{}, err
	}
	if best, ok := Latest(matches); ok {
		return best, nil
	}

	return Record{}, fmt.Errorf("%w for infrastructure %s and os %s", ErrNoStemcell, infra, osName)
}

// uploadLocation prefers a cached tarball over the remote URL.
func (r *Resolver) uploadLocation(infra, osName string) (string, error) {
	if r.CacheDir != "" {
		filename, err := CachedFilename(infra, osName)
		if err != nil {
			return "", err
		}
		cached := filepath.Join(r.CacheDir, filename)
		if isFile(cached) {
			return cached, nil
		}
		r.logger().Debug("no cached stemcell", "path", cached)
	}
	return RemoteURL(infra, osName)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *Resolver) matching(ctx context.Context, infra, osName string) ([]Record, error) {
	records, err := r.Catalog.ListStemcells(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stemcells: %w", err)
	}

	var out []Record
	for _, rec := range records {
		if Matches(rec, infra, osName) {
			out = append(out, rec)
		}
	}
	r.logger().Debug("stemcell catalog queried", "records", len(records), "matching", len(out))
	return out, nil
}

// Matches reports whether rec is for infra and os. A record's
// infrastructure is taken from its name when not set.
func Matches(rec Record, infra, osName string) bool {
	recInfra := rec.Infrastructure
	if recInfra == "" {
		recInfra = InfrastructureFromName(rec.Name)
	}
	if recInfra != infra {
		return false
	}
	return rec.OS == osName || strings.HasPrefix(rec.OS, osName+"-")
}

// Latest returns the record with the highest version. The first listed
// record wins a tie.
func Latest(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	best := records[0]
	for _, rec := range records[1:] {
		if CompareVersions(rec.Version, best.Version) > 0 {
			best = rec
		}
	}
	return best, true
}

// CompareVersions compares two stemcell versions and returns -1, 0 or 1.
// Versions are parsed leniently as semver ("3586.60" is 3586.60.0); when
// either side does not parse, dotted numeric comparison is used.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareDotted(a, b)
}

// compareDotted compares dot-separated segments numerically where both
// segments are numbers and lexically otherwise. Missing segments count as 0.
func compareDotted(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		sa, sb := "0", "0"
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}

		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				return cmpInt(na, nb)
			}
		case sa != sb:
			return strings.Compare(sa, sb)
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}
