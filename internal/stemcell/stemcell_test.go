package stemcell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wardenUbuntu = "bosh-warden-boshlite-ubuntu-trusty-go_agent"

// fakeCatalog records uploads and optionally registers a stemcell on upload.
type fakeCatalog struct {
	records   []Record
	onUpload  []Record
	uploads   []string
	lists     int
	listErr   error
	uploadErr error
}

func (f *fakeCatalog) ListStemcells(ctx context.Context) ([]Record, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Record(nil), f.records...), nil
}

func (f *fakeCatalog) UploadStemcell(ctx context.Context, location string) error {
	f.uploads = append(f.uploads, location)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.records = append(f.records, f.onUpload...)
	return nil
}

func wardenRecord(version, cid string) Record {
	return Record{Name: wardenUbuntu, OS: "ubuntu-trusty", Version: version, CID: cid}
}

func TestResolve_SelectsHighestVersion(t *testing.T) {
	catalog := &fakeCatalog{records: []Record{
		wardenRecord("3", "a"),
		wardenRecord("7", "b"),
		wardenRecord("5", "c"),
	}}

	rec, err := NewResolver(catalog, "").Resolve(context.Background(), Warden, Ubuntu, "")
	require.NoError(t, err)
	assert.Equal(t, "7", rec.Version)
	assert.Empty(t, catalog.uploads)
}

func TestResolve_TieKeepsFirstListed(t *testing.T) {
	catalog := &fakeCatalog{records: []Record{
		wardenRecord("3586.60", "first"),
		wardenRecord("3586.60.0", "second"),
	}}

	rec, err := NewResolver(catalog, "").Resolve(context.Background(), Warden, Ubuntu, "")
	require.NoError(t, err)
	assert.Equal(t, "first", rec.CID)
}

func TestResolve_FiltersByPlatform(t *testing.T) {
	catalog := &fakeCatalog{records: []Record{
		{Name: "bosh-aws-xen-hvm-ubuntu-trusty-go_agent", OS: "ubuntu-trusty", Version: "9000"},
		{Name: "bosh-warden-boshlite-centos-7-go_agent", OS: "centos-7", Version: "8000"},
		wardenRecord("3421.11", "match"),
	}}

	rec, err := NewResolver(catalog, "").Resolve(context.Background(), Warden, Ubuntu, "")
	require.NoError(t, err)
	assert.Equal(t, "match", rec.CID)
}

func TestResolve_ExplicitVersion(t *testing.T) {
	catalog := &fakeCatalog{records: []Record{
		wardenRecord("3", "a"),
		wardenRecord("7", "b"),
	}}
	r := NewResolver(catalog, "")

	t.Run("present", func(t *testing.T) {
		rec, err := r.Resolve(context.Background(), Warden, Ubuntu, "3")
		require.NoError(t, err)
		assert.Equal(t, "a", rec.CID)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), Warden, Ubuntu, "4")
		assert.ErrorIs(t, err, ErrVersionNotFound)
		assert.Empty(t, catalog.uploads)
	})
}

func TestResolve_UploadsRemoteURLWhenNothingCached(t *testing.T) {
	catalog := &fakeCatalog{onUpload: []Record{wardenRecord("3586.60", "uploaded")}}

	rec, err := NewResolver(catalog, t.TempDir()).Resolve(context.Background(), Warden, Ubuntu, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://bosh.io/d/stemcells/" + wardenUbuntu}, catalog.uploads)
	assert.Equal(t, "uploaded", rec.CID)
	assert.Equal(t, 2, catalog.lists)
}

func TestResolve_UploadsCachedTarball(t *testing.T) {
	cacheDir := t.TempDir()
	cached := filepath.Join(cacheDir, "bosh-stemcell-warden-boshlite-ubuntu-trusty-go_agent.tgz")
	require.NoError(t, os.WriteFile(cached, []byte("tarball"), 0644))

	catalog := &fakeCatalog{onUpload: []Record{wardenRecord("3586.60", "cached")}}

	rec, err := NewResolver(catalog, cacheDir).Resolve(context.Background(), Warden, Ubuntu, "")
	require.NoError(t, err)
	assert.Equal(t, []string{cached}, catalog.uploads)
	assert.Equal(t, "cached", rec.CID)
}

func TestResolve_NoStemcellAfterUpload(t *testing.T) {
	catalog := &fakeCatalog{}

	_, err := NewResolver(catalog, "").Resolve(context.Background(), AWSEC2, CentOS, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoStemcell)
	assert.Contains(t, err.Error(), "aws-ec2")
	assert.Contains(t, err.Error(), "centos")
	assert.Len(t, catalog.uploads, 1)
}

func TestResolve_RejectsUnsupportedBeforeCatalog(t *testing.T) {
	tests := []struct {
		name    string
		infra   string
		os      string
		wantErr error
	}{
		{name: "infrastructure", infra: "openstack", os: Ubuntu, wantErr: ErrUnsupportedInfrastructure},
		{name: "os", infra: Warden, os: "windows", wantErr: ErrUnsupportedOS},
		{name: "empty infrastructure", infra: "", os: Ubuntu, wantErr: ErrUnsupportedInfrastructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &fakeCatalog{records: []Record{wardenRecord("1", "a")}}

			_, err := NewResolver(catalog, "").Resolve(context.Background(), tt.infra, tt.os, "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, catalog.lists)
			assert.Empty(t, catalog.uploads)
		})
	}
}

func TestResolve_CatalogErrors(t *testing.T) {
	boom := errors.New("director unreachable")

	t.Run("list", func(t *testing.T) {
		_, err := NewResolver(&fakeCatalog{listErr: boom}, "").Resolve(context.Background(), Warden, Ubuntu, "")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("upload", func(t *testing.T) {
		_, err := NewResolver(&fakeCatalog{uploadErr: boom}, "").Resolve(context.Background(), Warden, Ubuntu, "")
		assert.ErrorIs(t, err, boom)
	})
}

func TestNamesAndLocations(t *testing.T) {
	tests := []struct {
		infra      string
		os         string
		wantCached string
		wantURL    string
	}{
		{
			infra:      Warden,
			os:         Ubuntu,
			wantCached: "bosh-stemcell-warden-boshlite-ubuntu-trusty-go_agent.tgz",
			wantURL:    "https://bosh.io/d/stemcells/bosh-warden-boshlite-ubuntu-trusty-go_agent",
		},
		{
			infra:      AWSEC2,
			os:         Ubuntu,
			wantCached: "bosh-stemcell-aws-xen-hvm-ubuntu-trusty-go_agent.tgz",
			wantURL:    "https://bosh.io/d/stemcells/bosh-aws-xen-hvm-ubuntu-trusty-go_agent",
		},
		{
			infra:      AWSEC2,
			os:         CentOS,
			wantCached: "bosh-stemcell-aws-xen-hvm-centos-7-go_agent.tgz",
			wantURL:    "https://bosh.io/d/stemcells/bosh-aws-xen-hvm-centos-7-go_agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.infra+"/"+tt.os, func(t *testing.T) {
			cached, err := CachedFilename(tt.infra, tt.os)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCached, cached)

			url, err := RemoteURL(tt.infra, tt.os)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}

	_, err := RemoteURL("vsphere", Ubuntu)
	assert.ErrorIs(t, err, ErrUnsupportedInfrastructure)
}

func TestInfrastructureFromName(t *testing.T) {
	assert.Equal(t, Warden, InfrastructureFromName(wardenUbuntu))
	assert.Equal(t, AWSEC2, InfrastructureFromName("bosh-aws-xen-hvm-centos-7-go_agent"))
	assert.Equal(t, "", InfrastructureFromName("bosh-vsphere-esxi-ubuntu-trusty-go_agent"))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"7", "5", 1},
		{"3", "7", -1},
		{"3586.60", "3586.7", 1},
		{"3586.60", "3586.60.0", 0},
		{"1.2.3", "1.10.0", -1},
		{"3421.11-rc", "3421.11", -1},
		{"latest", "latest", 0},
		{"12.x", "9.x", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}
