// Package plan loads a declarative intent file and compiles it into one
// executable script per host.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/batch"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/managerconfig"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/source"
)

// Plan is the full desired state for a host: manager settings, package
// sources, package operations.
type Plan struct {
	Config   map[string]interface{}       `yaml:"config,omitempty"`
	Sources  []source.Source              `yaml:"sources,omitempty"`
	Packages []operation.PackageOperation `yaml:"packages,omitempty"`
}

// Load reads a plan file and normalizes its operations.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}
	return Parse(data)
}

// Parse decodes plan YAML and applies operation defaults.
func Parse(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("decoding plan: %w", err)
	}
	for i, op := range p.Packages {
		p.Packages[i] = operation.Normalize(op)
	}
	return p, nil
}

// Compiler bundles the per-concern compilers behind one entry point.
type Compiler struct {
	Registry *batch.Registry
	Sources  *source.Formatter
	Config   *managerconfig.Compiler
}

func NewCompiler() *Compiler {
	return &Compiler{
		Registry: batch.DefaultRegistry(),
		Sources:  source.NewFormatter(),
		Config:   managerconfig.NewCompiler(),
	}
}

// Compile produces the host's script: manager config first, then source
// registration, then the package batch, each as its own checked group so a
// failure names the phase that broke.
func (c *Compiler) Compile(facts hostinfo.Facts, p Plan) (scripttree.Script, error) {
	var nodes []scripttree.Node

	if len(p.Config) > 0 {
		cfg, err := c.Config.Compile(facts, p.Config)
		if err != nil {
			return scripttree.Script{}, err
		}
		if len(cfg) > 0 {
			nodes = append(nodes, scripttree.Group{Label: "package-manager config", Body: cfg})
		}
	}

	for _, src := range p.Sources {
		rendered, err := c.Sources.Compile(facts, src)
		if err != nil {
			return scripttree.Script{}, err
		}
		nodes = append(nodes, scripttree.Group{Label: "package-source " + src.Name, Body: rendered})
	}

	if len(p.Packages) > 0 {
		strategy, ok := c.Registry.Lookup(facts.Backend)
		if !ok {
			return scripttree.Script{}, fmt.Errorf("no compiler registered for backend %q", facts.Backend)
		}
		body, err := strategy.Compile(p.Packages)
		if err != nil {
			return scripttree.Script{}, err
		}
		nodes = append(nodes, scripttree.Group{Label: "packages", Body: body})
	}

	return scripttree.New(nodes...), nil
}
