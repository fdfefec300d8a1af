// Package source renders repository-source definitions into each backend's
// on-disk format and the commands that register keys or PPAs.
package source

import (
	"fmt"
	"strings"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/remotefile"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// Source is one named package repository with per-backend options. Only the
// options for the host's backend are consulted during a compile.
type Source struct {
	Name string      `yaml:"name"`
	Apt  *AptOptions `yaml:"apt,omitempty"`
	Yum  *YumOptions `yaml:"yum,omitempty"`
}

// AptOptions describe a deb source line plus optional key material.
type AptOptions struct {
	URL     string   `yaml:"url"`
	Type    string   `yaml:"type,omitempty"`    // defaults to "deb"
	Release string   `yaml:"release,omitempty"` // defaults to the host codename
	Scopes  []string `yaml:"scopes,omitempty"`
	KeyID   string   `yaml:"key-id,omitempty"`
	KeyURL  string   `yaml:"key-url,omitempty"`
}

// YumOptions describe a .repo stanza.
type YumOptions struct {
	URL            string `yaml:"url,omitempty"`
	Mirrorlist     string `yaml:"mirrorlist,omitempty"`
	GPGKey         string `yaml:"gpgkey,omitempty"`
	Priority       int    `yaml:"priority,omitempty"`
	FailoverMethod string `yaml:"failovermethod,omitempty"`
}

// DefaultKeyServer receives apt key-id imports unless the formatter is
// configured otherwise.
const DefaultKeyServer = "subkeys.pgp.net"

// Formatter compiles sources. The key server lives here, defaulted at
// construction, so no package-level mutable state is involved.
type Formatter struct {
	KeyServer string
	Files     remotefile.Writer
}

func NewFormatter() *Formatter {
	return &Formatter{
		KeyServer: DefaultKeyServer,
		Files:     remotefile.ShellWriter{},
	}
}

// Compile renders one source for the host's backend.
func (f *Formatter) Compile(facts hostinfo.Facts, src Source) ([]scripttree.Node, error) {
	switch facts.Backend {
	case hostinfo.Apt, hostinfo.Aptitude:
		if src.Apt == nil {
			return nil, fmt.Errorf("source %q has no apt options", src.Name)
		}
		return f.compileApt(facts, src.Name, src.Apt)
	case hostinfo.Yum:
		if src.Yum == nil {
			return nil, fmt.Errorf("source %q has no yum options", src.Name)
		}
		return f.compileYum(src.Name, src.Yum)
	}
	return nil, fmt.Errorf("backend %q does not support source definitions", facts.Backend)
}

func (f *Formatter) compileApt(facts hostinfo.Facts, name string, opts *AptOptions) ([]scripttree.Node, error) {
	if strings.HasPrefix(opts.URL, "ppa:") {
		// PPAs never touch sources.list.d directly; the management tool
		// owns the file.
		return []scripttree.Node{
			scripttree.Cmd("apt-get", "-q", "-y", "install", "python-software-properties"),
			scripttree.Cmd("add-apt-repository", opts.URL),
			scripttree.Cmd("apt-get", "-qq", "update"),
		}, nil
	}

	srcType := opts.Type
	if srcType == "" {
		srcType = "deb"
	}
	release := opts.Release
	if release == "" {
		release = facts.Codename
	}
	if release == "" {
		// Without a release the rendered line is malformed and apt rejects
		// the whole sources.list.d file.
		return nil, fmt.Errorf("source %q: no release given and host %q reports no codename", name, facts.Hostname)
	}
	line := srcType + " " + opts.URL + " " + release
	if len(opts.Scopes) > 0 {
		line += " " + strings.Join(opts.Scopes, " ")
	}

	nodes := []scripttree.Node{
		f.Files.Write("/etc/apt/sources.list.d/"+name+".list", line+"\n"),
	}
	switch {
	case opts.KeyID != "":
		nodes = append(nodes, scripttree.Cmd(
			"apt-key", "adv", "--keyserver", f.KeyServer, "--recv-keys", opts.KeyID))
	case opts.KeyURL != "":
		keyPath := "/tmp/" + name + ".key"
		nodes = append(nodes,
			f.Files.Fetch(keyPath, opts.KeyURL),
			scripttree.Cmd("apt-key", "add", keyPath))
	}
	return nodes, nil
}

func (f *Formatter) compileYum(name string, opts *YumOptions) ([]scripttree.Node, error) {
	nodes := []scripttree.Node{
		f.Files.Write("/etc/yum.repos.d/"+name+".repo", yumStanza(name, opts)),
	}
	if opts.GPGKey != "" {
		nodes = append(nodes, scripttree.Cmd("rpm", "--import", opts.GPGKey))
	}
	return nodes, nil
}
