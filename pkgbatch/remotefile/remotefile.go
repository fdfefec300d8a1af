// Package remotefile is the file-transfer collaborator used by the source
// and manager-config compilers. Callers depend on the Writer interface; the
// default implementation expresses transfers as script nodes so they travel
// inside the same compiled batch as the package commands.
package remotefile

import (
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// Writer turns file intents into script nodes.
type Writer interface {
	// Write places literal content at path on the target host.
	Write(path, content string) scripttree.Node

	// Fetch downloads url to path on the target host.
	Fetch(path, url string) scripttree.Node
}

// ShellWriter is the default Writer: heredoc writes and curl fetches,
// rendered by the shared script assembler.
type ShellWriter struct{}

func (ShellWriter) Write(path, content string) scripttree.Node {
	return scripttree.WriteFile{Path: path, Content: content, Mode: "0644"}
}

func (ShellWriter) Fetch(path, url string) scripttree.Node {
	return scripttree.Cmd("curl", "-s", "-L", "-o", path, url)
}
