package operation

// Action says what should happen to a package. The compiler only accepts
// the three values below; anything else is rejected at compile time rather
// than silently coerced, so typos in plans surface as errors.
type Action string

const (
	Install Action = "install"
	Remove  Action = "remove"
	Upgrade Action = "upgrade"
)

// Known reports whether a is one of the recognized action variants.
func (a Action) Known() bool {
	switch a {
	case Install, Remove, Upgrade:
		return true
	}
	return false
}

const DefaultPriority = 50

// PackageOperation is one normalized package intent. It is immutable once
// built: the batch compiler reads it, never writes it.
type PackageOperation struct {
	Name     string   `yaml:"name"`
	Action   Action   `yaml:"action,omitempty"`
	Purge    bool     `yaml:"purge,omitempty"`
	Force    bool     `yaml:"force,omitempty"`
	Enable   []string `yaml:"enable,omitempty"`
	Disable  []string `yaml:"disable,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
	Priority int      `yaml:"priority,omitempty"`
}
