package hostinfo

import "fmt"

// Backend identifies the package-manager dialect a host speaks. It is a
// closed enumeration: compilation strategies are registered per Backend and
// exactly one is chosen per host per compile.
type Backend string

const (
	Apt      Backend = "apt"
	Aptitude Backend = "aptitude"
	Yum      Backend = "yum"
	Pacman   Backend = "pacman"
	Other    Backend = "other"
)

// Family is the host's OS lineage, used where a backend needs
// family-specific defaults (e.g. a release codename for apt sources).
type Family string

const (
	FamilyDebian Family = "debian"
	FamilyRHEL   Family = "rhel"
	FamilyArch   Family = "arch"
	FamilyOther  Family = "other"
)

// Facts is the host context a compilation runs against. It is supplied by
// the caller; this package never inspects a live host.
type Facts struct {
	Hostname string  `yaml:"hostname"`
	Backend  Backend `yaml:"backend"`
	Family   Family  `yaml:"family"`
	// Codename is the distribution release name ("bookworm", "jammy").
	// Apt source lines default their release component to it.
	Codename string `yaml:"codename,omitempty"`
}

// ParseBackend maps a configuration string onto the Backend enumeration.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case Apt, Aptitude, Yum, Pacman, Other:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unknown package backend %q", s)
}

// DefaultFamily returns the OS family a backend is normally found on.
func DefaultFamily(b Backend) Family {
	switch b {
	case Apt, Aptitude:
		return FamilyDebian
	case Yum:
		return FamilyRHEL
	case Pacman:
		return FamilyArch
	}
	return FamilyOther
}
