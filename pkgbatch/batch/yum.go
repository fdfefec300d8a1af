package batch

import (
	"sort"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// YumCompiler emits separate install/remove/upgrade invocations. Installs
// always run before removes, and removes before upgrades, so a removal
// never races a dependency of an install in the same batch.
type YumCompiler struct{}

func (c *YumCompiler) Backend() hostinfo.Backend {
	return hostinfo.Yum
}

// actionRank orders yum command buckets. The gaps are room for backends
// that need interleaved phases.
var actionRank = map[operation.Action]int{
	operation.Install: 10,
	operation.Remove:  20,
	operation.Upgrade: 30,
}

var yumVerb = map[operation.Action]string{
	operation.Install: "install",
	operation.Remove:  "remove",
	operation.Upgrade: "upgrade",
}

func (c *YumCompiler) Compile(ops []operation.PackageOperation) ([]scripttree.Node, error) {
	if err := checkActions(ops); err != nil {
		return nil, err
	}
	ranked := make([]operation.PackageOperation, len(ops))
	copy(ranked, ops)
	sort.SliceStable(ranked, func(i, j int) bool {
		return actionRank[ranked[i].Action] < actionRank[ranked[j].Action]
	})

	// Priority ordering applies within an action bucket only; it must
	// never move an upgrade ahead of an install.
	var nodes []scripttree.Node
	for _, bucket := range splitByAction(ranked) {
		for _, g := range groupBy(bucket, func(op operation.PackageOperation) string {
			return setKey(op.Enable, op.Disable, op.Exclude)
		}) {
			first := g.ops[0]
			args := []string{yumVerb[first.Action], "-q", "-y"}
			for _, repo := range first.Disable {
				args = append(args, "--disablerepo="+repo)
			}
			for _, repo := range first.Enable {
				args = append(args, "--enablerepo="+repo)
			}
			for _, pat := range first.Exclude {
				args = append(args, "--exclude="+pat)
			}
			args = append(args, dedupNames(g.ops)...)
			nodes = append(nodes, scripttree.Cmd("yum", args...))
		}
	}
	nodes = append(nodes, scripttree.Cmd("yum", "list", "installed", "-q"))
	return nodes, nil
}

// splitByAction cuts a rank-sorted slice into contiguous runs sharing one
// action.
func splitByAction(ops []operation.PackageOperation) [][]operation.PackageOperation {
	var buckets [][]operation.PackageOperation
	for _, op := range ops {
		n := len(buckets)
		if n == 0 || buckets[n-1][0].Action != op.Action {
			buckets = append(buckets, nil)
			n++
		}
		buckets[n-1] = append(buckets[n-1], op)
	}
	return buckets
}

// dedupNames collapses repeated package names within one group, keeping the
// first occurrence's position.
func dedupNames(ops []operation.PackageOperation) []string {
	seen := make(map[string]bool, len(ops))
	var names []string
	for _, op := range ops {
		if seen[op.Name] {
			continue
		}
		seen[op.Name] = true
		names = append(names, op.Name)
	}
	return names
}
