package batch

import (
	"strings"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// AptitudeCompiler batches like apt but compensates for aptitude's exit
// code, which does not reflect individual package failures: every operation
// gets one post-hoc verification command.
type AptitudeCompiler struct{}

func (c *AptitudeCompiler) Backend() hostinfo.Backend {
	return hostinfo.Aptitude
}

func (c *AptitudeCompiler) Compile(ops []operation.PackageOperation) ([]scripttree.Node, error) {
	nodes, err := compileAptFamily("aptitude", ops)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		nodes = append(nodes, verifyNode(op))
	}
	return nodes, nil
}

// verifyNode asserts the post-execution state of one operation: presence in
// the installed set for install/upgrade, absence for remove. The grep leg
// matches the raw name with -F; the aptitude escaping is regex syntax there
// ("g\+\+" is a BRE that matches "g").
func verifyNode(op operation.PackageOperation) scripttree.Node {
	escaped := escapeSearchPattern(op.Name)
	query := scripttree.Pipe{Stmts: []scripttree.Stmt{
		scripttree.Cmd("aptitude", "search", "?and(?installed, ?name(^"+escaped+"$))"),
		scripttree.Cmd("grep", "-q", "-F", op.Name),
	}}
	if op.Action == operation.Remove {
		return scripttree.Not{Node: query}
	}
	return query
}

// escapeSearchPattern backslash-escapes the characters aptitude's search
// patterns treat as metacharacters, so a literal package name matches only
// itself.
func escapeSearchPattern(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune("+-.()|[]^$", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
