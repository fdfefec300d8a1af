package batch

import (
	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// AptCompiler batches operations into apt-get invocations. Apt and aptitude
// share the combined install surface: one command installs, removes, or
// purges according to the package-name suffix.
type AptCompiler struct{}

func (c *AptCompiler) Backend() hostinfo.Backend {
	return hostinfo.Apt
}

func (c *AptCompiler) Compile(ops []operation.PackageOperation) ([]scripttree.Node, error) {
	nodes, err := compileAptFamily("apt-get", ops)
	if err != nil {
		return nil, err
	}
	// apt-get's exit code is trustworthy; a package listing is enough for
	// post-hoc inspection.
	nodes = append(nodes, scripttree.Cmd("dpkg", "--get-selections"))
	return nodes, nil
}

// compileAptFamily renders one package-manager invocation per enable-set
// group. Groups are ordered by their minimum priority; within a group,
// packages are emitted install/upgrade first, then removals, then purges,
// keeping input order inside each bucket.
func compileAptFamily(tool string, ops []operation.PackageOperation) ([]scripttree.Node, error) {
	if err := checkActions(ops); err != nil {
		return nil, err
	}
	nodes := []scripttree.Node{
		scripttree.Export{Name: "DEBIAN_FRONTEND", Value: "noninteractive"},
	}
	for _, g := range groupBy(ops, func(op operation.PackageOperation) string {
		return setKey(op.Enable)
	}) {
		args := []string{"-q", "-y"}
		for _, repo := range g.ops[0].Enable {
			args = append(args, "-t", repo)
		}
		args = append(args, "install")
		args = append(args, suffixedNames(g.ops)...)
		nodes = append(nodes, scripttree.Cmd(tool, args...))
	}
	return nodes, nil
}

// suffixedNames renders each package with the apt-family action suffix:
// `+` install or upgrade, `-` remove keeping config, `_` purge.
func suffixedNames(ops []operation.PackageOperation) []string {
	var installs, removes, purges []string
	for _, op := range ops {
		switch {
		case op.Action == operation.Remove && op.Purge:
			purges = append(purges, op.Name+"_")
		case op.Action == operation.Remove:
			removes = append(removes, op.Name+"-")
		default:
			installs = append(installs, op.Name+"+")
		}
	}
	names := make([]string, 0, len(ops))
	names = append(names, installs...)
	names = append(names, removes...)
	names = append(names, purges...)
	return names
}
