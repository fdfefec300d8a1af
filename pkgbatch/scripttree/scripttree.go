package scripttree

import (
	"fmt"
	"strings"
)

// Node is a single element of a command tree. Nodes are immutable values;
// rendering the same tree twice produces identical text.
//
// The guard argument is a suffix attached to each command a checked group
// emits; a brace group's exit status in POSIX sh is that of its last
// command only, so aggregate failure has to be enforced per command.
type Node interface {
	render(b *strings.Builder, guard string)
}

// Stmt is one command invocation. Arguments are quoted by the renderer, so
// callers never deal with shell escaping themselves.
type Stmt struct {
	Name string
	Args []string
}

func Cmd(name string, args ...string) Stmt {
	return Stmt{Name: name, Args: args}
}

func (s Stmt) render(b *strings.Builder, guard string) {
	s.writeCommand(b)
	b.WriteString(guard)
	b.WriteByte('\n')
}

func (s Stmt) writeCommand(b *strings.Builder) {
	b.WriteString(s.Name)
	for _, arg := range s.Args {
		b.WriteByte(' ')
		b.WriteString(Quote(arg))
	}
}

// Pipe joins statements with the shell pipe operator.
type Pipe struct {
	Stmts []Stmt
}

func (p Pipe) render(b *strings.Builder, guard string) {
	for i, s := range p.Stmts {
		if i > 0 {
			b.WriteString(" | ")
		}
		s.writeCommand(b)
	}
	b.WriteString(guard)
	b.WriteByte('\n')
}

// OrElse runs Right only when Left fails. Used for guarded idempotent
// mutations such as "append unless the line is already present". A guard
// fires only when both legs fail.
type OrElse struct {
	Left  Node
	Right Node
}

func (o OrElse) render(b *strings.Builder, guard string) {
	b.WriteString(renderInline(o.Left))
	b.WriteString(" || ")
	b.WriteString(renderInline(o.Right))
	b.WriteString(guard)
	b.WriteByte('\n')
}

// Not inverts the exit status of its child.
type Not struct {
	Node Node
}

func (n Not) render(b *strings.Builder, guard string) {
	b.WriteString("! { ")
	b.WriteString(renderInline(n.Node))
	b.WriteString("; }")
	b.WriteString(guard)
	b.WriteByte('\n')
}

// Export sets an environment variable for the rest of the script.
type Export struct {
	Name  string
	Value string
}

func (e Export) render(b *strings.Builder, guard string) {
	fmt.Fprintf(b, "export %s=%s%s\n", e.Name, Quote(e.Value), guard)
}

// AppendTo redirects a statement's stdout onto the end of a file.
type AppendTo struct {
	Stmt Stmt
	Path string
}

func (a AppendTo) render(b *strings.Builder, guard string) {
	a.Stmt.writeCommand(b)
	b.WriteString(" >> ")
	b.WriteString(Quote(a.Path))
	b.WriteString(guard)
	b.WriteByte('\n')
}

// WriteFile writes literal content to a path via a quoted heredoc, so the
// content itself is never subject to shell expansion.
type WriteFile struct {
	Path    string
	Content string
	Mode    string
}

func (w WriteFile) render(b *strings.Builder, guard string) {
	tag := w.heredocTag()
	// The guard lands on the cat line: an AND-OR list is parsed before
	// the heredoc body is consumed.
	fmt.Fprintf(b, "cat > %s <<'%s'%s\n", Quote(w.Path), tag, guard)
	b.WriteString(w.Content)
	if !strings.HasSuffix(w.Content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(tag)
	b.WriteByte('\n')
	if w.Mode != "" {
		Cmd("chmod", w.Mode, w.Path).render(b, guard)
	}
}

// heredocTag picks a terminator that never appears as a content line, so
// the content can never end the heredoc early.
func (w WriteFile) heredocTag() string {
	tag := "EOFpkgbatch"
	for containsLine(w.Content, tag) {
		tag += "x"
	}
	return tag
}

func containsLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			return true
		}
	}
	return false
}

// Group is a checked command group: a labeled body whose aggregate failure
// aborts the script and is reported distinctly from success. Every body
// command carries the failure guard, so the first failing member stops the
// group; the SUCCESS line is only reached when all of them held.
type Group struct {
	Label string
	Body  []Node
}

func (g Group) render(b *strings.Builder, _ string) {
	fmt.Fprintf(b, "echo %s\n", Quote(g.Label+"..."))
	guard := " || { echo " + Quote("#> "+g.Label+" : FAIL") + "; exit 1; }"
	for _, n := range g.Body {
		n.render(b, guard)
	}
	fmt.Fprintf(b, "echo %s\n", Quote("#> "+g.Label+" : SUCCESS"))
}

// Script is a full command tree with a declared interpreter.
type Script struct {
	Interpreter string
	Nodes       []Node
}

func New(nodes ...Node) Script {
	return Script{Interpreter: "/bin/sh", Nodes: nodes}
}

// Render produces the final executable text. Rendering is the single place
// where quoting happens; backend strategies only build trees.
func (s Script) Render() string {
	var b strings.Builder
	b.WriteString("#!")
	b.WriteString(s.Interpreter)
	b.WriteByte('\n')
	for _, n := range s.Nodes {
		n.render(&b, "")
	}
	return b.String()
}

func renderInline(n Node) string {
	var b strings.Builder
	n.render(&b, "")
	return strings.TrimSuffix(b.String(), "\n")
}

const safeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%_+=:,./-"

// Quote returns s wrapped in single quotes unless it consists entirely of
// characters that need no quoting in a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !strings.ContainsRune(safeChars, r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
