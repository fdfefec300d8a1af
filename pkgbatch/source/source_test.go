package source

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

func debianFacts() hostinfo.Facts {
	return hostinfo.Facts{
		Hostname: "web1",
		Backend:  hostinfo.Apt,
		Family:   hostinfo.FamilyDebian,
		Codename: "bookworm",
	}
}

func rhelFacts() hostinfo.Facts {
	return hostinfo.Facts{Hostname: "db1", Backend: hostinfo.Yum, Family: hostinfo.FamilyRHEL}
}

func renderNodes(nodes []scripttree.Node) string {
	return scripttree.New(nodes...).Render()
}

func TestAptSourceLineDefaults(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "backports",
		Apt: &AptOptions{
			URL:    "http://deb.debian.org/debian",
			Scopes: []string{"main", "contrib"},
		},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "cat > /etc/apt/sources.list.d/backports.list")
	assert.Contains(t, out, "deb http://deb.debian.org/debian bookworm main contrib\n")
}

func TestAptSourceExplicitTypeAndRelease(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "src",
		Apt: &AptOptions{
			URL:     "http://example.com/debian",
			Type:    "deb-src",
			Release: "unstable",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, renderNodes(nodes), "deb-src http://example.com/debian unstable\n")
}

func TestAptSourceMissingRelease(t *testing.T) {
	f := NewFormatter()
	facts := debianFacts()
	facts.Codename = ""

	nodes, err := f.Compile(facts, Source{
		Name: "backports",
		Apt:  &AptOptions{URL: "http://deb.debian.org/debian", Scopes: []string{"main"}},
	})
	assert.Nil(t, nodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no release")
}

func TestPPABypassesFileRendering(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "nginx-ppa",
		Apt:  &AptOptions{URL: "ppa:nginx/stable"},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	out := renderNodes(nodes)
	assert.NotContains(t, out, "sources.list.d")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{
		"#!/bin/sh",
		"apt-get -q -y install python-software-properties",
		"add-apt-repository ppa:nginx/stable",
		"apt-get -qq update",
	}, lines)
}

func TestAptKeyIDUsesKeyServer(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "src",
		Apt:  &AptOptions{URL: "http://example.com/debian", KeyID: "7F0CEB10"},
	})
	require.NoError(t, err)
	assert.Contains(t, renderNodes(nodes),
		"apt-key adv --keyserver subkeys.pgp.net --recv-keys 7F0CEB10\n")
}

func TestAptKeyServerIsConfigurable(t *testing.T) {
	f := NewFormatter()
	f.KeyServer = "keyserver.ubuntu.com"
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "src",
		Apt:  &AptOptions{URL: "http://example.com/debian", KeyID: "7F0CEB10"},
	})
	require.NoError(t, err)
	assert.Contains(t, renderNodes(nodes), "--keyserver keyserver.ubuntu.com")
}

func TestAptKeyURLFetchesThenImports(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(debianFacts(), Source{
		Name: "src",
		Apt:  &AptOptions{URL: "http://example.com/debian", KeyURL: "http://example.com/key.asc"},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "curl -s -L -o /tmp/src.key http://example.com/key.asc\n")
	assert.Contains(t, out, "apt-key add /tmp/src.key\n")
}

func TestYumStanza(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(rhelFacts(), Source{
		Name: "epel",
		Yum: &YumOptions{
			URL:            "http://mirror.example.com/epel",
			GPGKey:         "http://mirror.example.com/RPM-GPG-KEY-EPEL",
			Priority:       10,
			FailoverMethod: "priority",
		},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "cat > /etc/yum.repos.d/epel.repo")
	assert.Contains(t, out, "[epel]\n")
	assert.Contains(t, out, "name=epel\n")
	assert.Contains(t, out, "baseurl=http://mirror.example.com/epel\n")
	assert.Contains(t, out, "gpgcheck=1\n")
	assert.Contains(t, out, "gpgkey=http://mirror.example.com/RPM-GPG-KEY-EPEL\n")
	assert.Contains(t, out, "priority=10\n")
	assert.Contains(t, out, "failovermethod=priority\n")
	assert.Contains(t, out, "enabled=1\n")
	assert.NotContains(t, out, "mirrorlist")
	assert.Contains(t, out, "rpm --import http://mirror.example.com/RPM-GPG-KEY-EPEL\n")
}

func TestYumStanzaMirrorlistOnly(t *testing.T) {
	f := NewFormatter()
	nodes, err := f.Compile(rhelFacts(), Source{
		Name: "updates",
		Yum:  &YumOptions{Mirrorlist: "http://mirrors.example.com/list"},
	})
	require.NoError(t, err)

	out := renderNodes(nodes)
	assert.Contains(t, out, "mirrorlist=http://mirrors.example.com/list\n")
	assert.Contains(t, out, "gpgcheck=0\n")
	assert.NotContains(t, out, "baseurl")
	assert.NotContains(t, out, "gpgkey=")
	assert.NotContains(t, out, "rpm --import")
}

// Compilations for different hosts run in parallel, so rendering a stanza
// must not write any package-level state. Meaningful under -race.
func TestYumStanzaConcurrentRenders(t *testing.T) {
	opts := &YumOptions{URL: "http://mirror.example.com/epel", Priority: 10}
	want := yumStanza("epel", opts)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := yumStanza("epel", opts); got != want {
				t.Errorf("concurrent render diverged:\n%s", got)
			}
		}()
	}
	wg.Wait()
}

func TestSourceUnsupportedBackend(t *testing.T) {
	f := NewFormatter()
	_, err := f.Compile(hostinfo.Facts{Backend: hostinfo.Pacman}, Source{Name: "x"})
	assert.Error(t, err)
}

func TestSourceMissingBackendOptions(t *testing.T) {
	f := NewFormatter()
	_, err := f.Compile(debianFacts(), Source{Name: "x", Yum: &YumOptions{URL: "u"}})
	assert.Error(t, err)
}
