// Package managerconfig renders global package-manager settings into the
// backend's auxiliary config file and wires that file into the main config
// where the manager does not discover it on its own.
package managerconfig

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/remotefile"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

const (
	aptConfPath    = "/etc/apt/apt.conf.d/50pkgbatch"
	yumConfPath    = "/etc/yum.pkgbatch.conf"
	pacmanConfPath = "/etc/pacman.pkgbatch.conf"
)

// kernelPackages is always appended to a yum installonlypkgs list so kernel
// upgrades stay opt-in no matter what the caller passes.
var kernelPackages = []string{
	"kernel", "kernel-bigmem", "kernel-enterprise", "kernel-smp",
	"kernel-debug", "kernel-unsupported", "kernel-source", "kernel-devel",
	"kernel-PAE", "kernel-PAE-debug",
}

// Compiler renders manager-config options. Unknown (backend, key) pairs are
// skipped, not errors: callers may pass one option superset across a
// heterogeneous fleet.
type Compiler struct {
	Files remotefile.Writer
}

func NewCompiler() *Compiler {
	return &Compiler{Files: remotefile.ShellWriter{}}
}

// Compile renders every recognized option for the host's backend and writes
// the joined lines to the backend's config file. Keys are walked in sorted
// order so output is deterministic.
func (c *Compiler) Compile(facts hostinfo.Facts, opts map[string]interface{}) ([]scripttree.Node, error) {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		if line, ok := renderOption(facts.Backend, k, opts[k]); ok {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	content := strings.Join(lines, "\n") + "\n"
	switch facts.Backend {
	case hostinfo.Apt, hostinfo.Aptitude:
		return []scripttree.Node{c.Files.Write(aptConfPath, content)}, nil
	case hostinfo.Yum:
		return append(
			[]scripttree.Node{c.Files.Write(yumConfPath, content)},
			appendOnce("include=file://"+yumConfPath, "/etc/yum.conf"),
		), nil
	case hostinfo.Pacman:
		return append(
			[]scripttree.Node{c.Files.Write(pacmanConfPath, content)},
			appendOnce("Include = "+pacmanConfPath, "/etc/pacman.conf"),
		), nil
	}
	return nil, nil
}

// renderOption maps one (backend, key) pair to its config line. The second
// return value reports whether the backend recognizes the key at all.
func renderOption(backend hostinfo.Backend, key string, value interface{}) (string, bool) {
	switch key {
	case "proxy":
		url := fmt.Sprintf("%v", value)
		switch backend {
		case hostinfo.Apt, hostinfo.Aptitude:
			return fmt.Sprintf("ACQUIRE::http::proxy %q;", url), true
		case hostinfo.Yum:
			return "proxy=" + url, true
		case hostinfo.Pacman:
			return fmt.Sprintf(
				`XferCommand = /usr/bin/wget -e "http_proxy = %s" -e "ftp_proxy = %s" --passive-ftp --no-verbose -c -O %%o %%u`,
				url, url), true
		}
	case "installonlypkgs":
		if backend == hostinfo.Yum {
			pkgs := append(stringList(value), kernelPackages...)
			return "installonlypkgs=" + strings.Join(pkgs, " "), true
		}
	}
	return "", false
}

// appendOnce emits a guarded append: the line lands in path only when a
// fixed-string search does not already find it there.
func appendOnce(line, path string) scripttree.Node {
	return scripttree.OrElse{
		Left:  scripttree.Cmd("grep", "-q", "-F", line, path),
		Right: scripttree.AppendTo{Stmt: scripttree.Cmd("echo", line), Path: path},
	}
}

// stringList accepts both []string and the []interface{} a YAML decode
// produces for untyped sequences.
func stringList(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case nil:
		return nil
	}
	return []string{fmt.Sprintf("%v", value)}
}
