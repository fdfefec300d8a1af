// Package batch compiles a host's package operations into one ordered,
// backend-specific command tree. Each backend gets its own Compiler
// strategy; the registry is the single dispatch point.
package batch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// Compiler turns the full operation list for one host into script nodes.
// Implementations are pure: same input, same tree, no I/O.
type Compiler interface {
	Backend() hostinfo.Backend
	Compile(ops []operation.PackageOperation) ([]scripttree.Node, error)
}

// InvalidOperationError reports an action outside the recognized set. It is
// a programming error in the caller's plan, never retried or coerced.
type InvalidOperationError struct {
	Package string
	Action  operation.Action
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid action %q for package %q", e.Action, e.Package)
}

// Registry maps backends to their compilation strategy.
type Registry struct {
	compilers map[hostinfo.Backend]Compiler
}

func NewRegistry() *Registry {
	return &Registry{compilers: make(map[hostinfo.Backend]Compiler)}
}

// Register makes a Compiler available under its Backend. Later
// registrations replace earlier ones.
func (r *Registry) Register(c Compiler) {
	r.compilers[c.Backend()] = c
}

// Lookup returns the Compiler for a backend.
func (r *Registry) Lookup(b hostinfo.Backend) (Compiler, bool) {
	c, ok := r.compilers[b]
	return c, ok
}

// DefaultRegistry returns a registry with every built-in backend wired.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&AptCompiler{})
	r.Register(&AptitudeCompiler{})
	r.Register(&YumCompiler{})
	r.Register(NewPacmanCompiler())
	r.Register(NewGenericCompiler())
	return r
}

// Compile selects the strategy for the host's backend, runs it, and wraps
// the result in one checked group so the whole batch succeeds or fails as a
// unit.
func Compile(r *Registry, facts hostinfo.Facts, ops []operation.PackageOperation) (scripttree.Script, error) {
	c, ok := r.Lookup(facts.Backend)
	if !ok {
		return scripttree.Script{}, fmt.Errorf("no compiler registered for backend %q", facts.Backend)
	}
	nodes, err := c.Compile(ops)
	if err != nil {
		return scripttree.Script{}, err
	}
	return scripttree.New(scripttree.Group{Label: "packages", Body: nodes}), nil
}

// checkActions rejects any operation whose action is not a recognized
// variant before a single node is built.
func checkActions(ops []operation.PackageOperation) error {
	for _, op := range ops {
		if !op.Action.Known() {
			return &InvalidOperationError{Package: op.Name, Action: op.Action}
		}
	}
	return nil
}

// opGroup is a run of operations sharing one grouping key.
type opGroup struct {
	key string
	ops []operation.PackageOperation
}

func (g opGroup) minPriority() int {
	min := g.ops[0].Priority
	for _, op := range g.ops[1:] {
		if op.Priority < min {
			min = op.Priority
		}
	}
	return min
}

// groupBy splits ops into groups keyed by keyFn, preserving first-seen
// group order and input order within each group, then stable-sorts the
// groups by minimum priority.
func groupBy(ops []operation.PackageOperation, keyFn func(operation.PackageOperation) string) []opGroup {
	index := make(map[string]int)
	var groups []opGroup
	for _, op := range ops {
		key := keyFn(op)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, opGroup{key: key})
		}
		groups[i].ops = append(groups[i].ops, op)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].minPriority() < groups[j].minPriority()
	})
	return groups
}

func setKey(parts ...[]string) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(strings.Join(part, "\x00"))
	}
	return b.String()
}
