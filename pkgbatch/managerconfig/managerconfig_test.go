package managerconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

func facts(b hostinfo.Backend) hostinfo.Facts {
	return hostinfo.Facts{Hostname: "h", Backend: b, Family: hostinfo.DefaultFamily(b)}
}

func renderNodes(nodes []scripttree.Node) string {
	return scripttree.New(nodes...).Render()
}

func TestAptProxy(t *testing.T) {
	c := NewCompiler()
	nodes, err := c.Compile(facts(hostinfo.Apt), map[string]interface{}{
		"proxy": "http://proxy.example.com:3128",
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "cat > /etc/apt/apt.conf.d/50pkgbatch")
	assert.Contains(t, out, `ACQUIRE::http::proxy "http://proxy.example.com:3128";`)
}

func TestYumProxyAndInclude(t *testing.T) {
	c := NewCompiler()
	nodes, err := c.Compile(facts(hostinfo.Yum), map[string]interface{}{
		"proxy": "http://proxy.example.com:3128",
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "cat > /etc/yum.pkgbatch.conf")
	assert.Contains(t, out, "proxy=http://proxy.example.com:3128\n")
	// The include append is guarded so re-running the script never
	// duplicates the line.
	assert.Contains(t, out,
		"grep -q -F include=file:///etc/yum.pkgbatch.conf /etc/yum.conf || echo include=file:///etc/yum.pkgbatch.conf >> /etc/yum.conf\n")
}

func TestPacmanProxyXferCommand(t *testing.T) {
	c := NewCompiler()
	nodes, err := c.Compile(facts(hostinfo.Pacman), map[string]interface{}{
		"proxy": "http://proxy:3128",
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out,
		`XferCommand = /usr/bin/wget -e "http_proxy = http://proxy:3128" -e "ftp_proxy = http://proxy:3128" --passive-ftp --no-verbose -c -O %o %u`)
	assert.Contains(t, out, "/etc/pacman.conf")
	assert.Contains(t, out, "Include = /etc/pacman.pkgbatch.conf")
}

func TestInstallOnlyPkgsAlwaysIncludesKernelPackages(t *testing.T) {
	c := NewCompiler()
	nodes, err := c.Compile(facts(hostinfo.Yum), map[string]interface{}{
		"installonlypkgs": []string{},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	for _, pkg := range kernelPackages {
		assert.Contains(t, out, pkg)
	}
	assert.Contains(t, out, "installonlypkgs=kernel ")
}

func TestInstallOnlyPkgsUnionsCallerList(t *testing.T) {
	c := NewCompiler()
	nodes, err := c.Compile(facts(hostinfo.Yum), map[string]interface{}{
		"installonlypkgs": []interface{}{"mysql-server"},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "installonlypkgs=mysql-server kernel")
}

func TestUnknownOptionsAreSkipped(t *testing.T) {
	c := NewCompiler()

	// installonlypkgs means nothing to apt; a fleet-wide option superset
	// must not fail.
	nodes, err := c.Compile(facts(hostinfo.Apt), map[string]interface{}{
		"installonlypkgs": []string{"mysql-server"},
		"no-such-option":  true,
	})
	require.NoError(t, err)
	assert.Nil(t, nodes)
}

func TestCompileIsDeterministic(t *testing.T) {
	c := NewCompiler()
	opts := map[string]interface{}{
		"proxy":           "http://p:1",
		"installonlypkgs": []string{"a", "b"},
	}

	first, err := c.Compile(facts(hostinfo.Yum), opts)
	require.NoError(t, err)
	second, err := c.Compile(facts(hostinfo.Yum), opts)
	require.NoError(t, err)
	assert.Equal(t, renderNodes(first), renderNodes(second))

	// Option lines land in sorted key order regardless of map iteration.
	out := renderNodes(first)
	assert.Less(t, strings.Index(out, "installonlypkgs="), strings.Index(out, "proxy="))
}
