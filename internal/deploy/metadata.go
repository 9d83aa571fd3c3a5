package deploy

import (
	"github.com/cameronsjo/shipwright/internal/stemcell"
)

// DefaultReleaseVersion is deployed when no release version is given.
const DefaultReleaseVersion = "latest"

// Metadata is the per-run layer: values known only when a manifest is
// built. It is composed in memory and never written.
type Metadata struct {
	Environment    string
	Stemcell       stemcell.Record
	SecurityGroup  string
	ReleaseName    string
	ReleaseVersion string
	DirectorUUID   string
}

// Document renders the metadata as a manifest layer.
func (m Metadata) Document() map[string]any {
	meta := map[string]any{
		"environment": m.Environment,
		"stemcell": map[string]any{
			"name":    m.Stemcell.Name,
			"version": m.Stemcell.Version,
		},
		"release": map[string]any{
			"name":    m.ReleaseName,
			"version": m.releaseVersion(),
		},
	}
	if m.SecurityGroup != "" {
		meta["security_groups"] = []any{m.SecurityGroup}
	}

	return map[string]any{
		"meta":          meta,
		"director_uuid": m.DirectorUUID,
		"releases": []any{
			map[string]any{"name": m.ReleaseName, "version": m.releaseVersion()},
		},
	}
}

func (m Metadata) releaseVersion() string {
	if m.ReleaseVersion == "" {
		return DefaultReleaseVersion
	}
	return m.ReleaseVersion
}
