package stemcell

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedInfrastructure indicates an infrastructure outside the supported set.
	ErrUnsupportedInfrastructure = errors.New("unsupported infrastructure")

	// ErrUnsupportedOS indicates an operating system outside the supported set.
	ErrUnsupportedOS = errors.New("unsupported operating system")
)

// Infrastructure names accepted by the resolver.
const (
	Warden = "warden"
	AWSEC2 = "aws-ec2"
)

// Operating systems accepted by the resolver.
const (
	Ubuntu = "ubuntu"
	CentOS = "centos"
)

// platform is the short CPI name and hypervisor used in stemcell names.
type platform struct {
	short      string
	hypervisor string
}

var platforms = map[string]platform{
	Warden: {short: "warden", hypervisor: "boshlite"},
	AWSEC2: {short: "aws", hypervisor: "xen-hvm"},
}

var osReleases = map[string]string{
	Ubuntu: "ubuntu-trusty",
	CentOS: "centos-7",
}

// Infrastructures returns the supported infrastructure names, sorted.
func Infrastructures() []string {
	return sortedKeys(platforms)
}

// OperatingSystems returns the supported operating systems, sorted.
func OperatingSystems() []string {
	return sortedKeys(osReleases)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks infra and os against the supported sets.
func Validate(infra, os string) error {
	if _, ok := platforms[infra]; !ok {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedInfrastructure,
			infra, strings.Join(Infrastructures(), ", "))
	}
	if _, ok := osReleases[os]; !ok {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedOS,
			os, strings.Join(OperatingSystems(), ", "))
	}
	return nil
}

// Name returns the stemcell name for infra and os, e.g.
// bosh-warden-boshlite-ubuntu-trusty-go_agent.
func Name(infra, os string) (string, error) {
	if err := Validate(infra, os); err != nil {
		return "", err
	}
	p := platforms[infra]
	return fmt.Sprintf("bosh-%s-%s-%s-go_agent", p.short, p.hypervisor, osReleases[os]), nil
}

// CachedFilename returns the name of a locally cached stemcell tarball.
func CachedFilename(infra, os string) (string, error) {
	name, err := Name(infra, os)
	if err != nil {
		return "", err
	}
	return "bosh-stemcell-" + strings.TrimPrefix(name, "bosh-") + ".tgz", nil
}

// RemoteURL returns the public download location of the latest stemcell.
func RemoteURL(infra, os string) (string, error) {
	name, err := Name(infra, os)
	if err != nil {
		return "", err
	}
	return "https://bosh.io/d/stemcells/" + name, nil
}

// InfrastructureFromName recovers the infrastructure from a stemcell name.
// It returns "" when the name matches no supported platform.
func InfrastructureFromName(name string) string {
	for infra, p := range platforms {
		if strings.Contains(name, "-"+p.short+"-"+p.hypervisor+"-") {
			return infra
		}
	}
	return ""
}
