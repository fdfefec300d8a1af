package batch

import (
	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// Primitives are the single-package commands a non-batching backend runs,
// one per operation.
type Primitives struct {
	Install func(name string, force bool) scripttree.Stmt
	Remove  func(name string) scripttree.Stmt
	Purge   func(name string) scripttree.Stmt
	Upgrade func(name string, force bool) scripttree.Stmt
}

// GenericCompiler handles backends without a combined invocation: it walks
// the operations in input order and emits one primitive command each,
// preceded by the backend's non-interactive preamble.
type GenericCompiler struct {
	backend    hostinfo.Backend
	preamble   []scripttree.Node
	primitives Primitives
}

func (c *GenericCompiler) Backend() hostinfo.Backend {
	return c.backend
}

func (c *GenericCompiler) Compile(ops []operation.PackageOperation) ([]scripttree.Node, error) {
	if err := checkActions(ops); err != nil {
		return nil, err
	}
	nodes := append([]scripttree.Node{}, c.preamble...)
	for _, op := range ops {
		switch {
		case op.Action == operation.Remove && op.Purge:
			nodes = append(nodes, c.primitives.Purge(op.Name))
		case op.Action == operation.Remove:
			nodes = append(nodes, c.primitives.Remove(op.Name))
		case op.Action == operation.Upgrade:
			nodes = append(nodes, c.primitives.Upgrade(op.Name, op.Force))
		default:
			nodes = append(nodes, c.primitives.Install(op.Name, op.Force))
		}
	}
	return nodes, nil
}

// NewGenericCompiler builds the fallback for hosts whose package manager is
// unknown. It leans on the OS-level primitive scripts installed alongside
// the batch runner instead of any concrete manager.
func NewGenericCompiler() *GenericCompiler {
	withForce := func(verb string) func(string, bool) scripttree.Stmt {
		return func(name string, force bool) scripttree.Stmt {
			if force {
				return scripttree.Cmd(verb, "--force", name)
			}
			return scripttree.Cmd(verb, name)
		}
	}
	return &GenericCompiler{
		backend: hostinfo.Other,
		preamble: []scripttree.Node{
			scripttree.Cmd("package-manager-non-interactive"),
		},
		primitives: Primitives{
			Install: withForce("install-package"),
			Remove:  func(name string) scripttree.Stmt { return scripttree.Cmd("remove-package", name) },
			Purge:   func(name string) scripttree.Stmt { return scripttree.Cmd("purge-package", name) },
			Upgrade: withForce("upgrade-package"),
		},
	}
}

// NewPacmanCompiler builds the pacman strategy. Pacman has no global
// non-interactive directive, so --noconfirm rides on every command.
func NewPacmanCompiler() *GenericCompiler {
	sync := func(name string, force bool) scripttree.Stmt {
		if force {
			return scripttree.Cmd("pacman", "-S", "--noconfirm", "-f", name)
		}
		return scripttree.Cmd("pacman", "-S", "--noconfirm", name)
	}
	return &GenericCompiler{
		backend: hostinfo.Pacman,
		primitives: Primitives{
			Install: sync,
			Remove: func(name string) scripttree.Stmt {
				return scripttree.Cmd("pacman", "-R", "--noconfirm", name)
			},
			Purge: func(name string) scripttree.Stmt {
				return scripttree.Cmd("pacman", "-R", "-n", "--noconfirm", name)
			},
			Upgrade: sync,
		},
	}
}
