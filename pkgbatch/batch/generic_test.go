package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/hostinfo"
	"github.com/pkgbatchops/pkgbatch/pkgbatch/operation"
)

func TestGenericOnePrimitivePerOperation(t *testing.T) {
	ops := []operation.PackageOperation{
		operation.New("b", operation.WithAction(operation.Remove)),
		operation.New("a"),
		operation.New("c", operation.WithAction(operation.Upgrade)),
		operation.New("d", operation.WithAction(operation.Remove), operation.WithPurge()),
	}

	nodes, err := NewGenericCompiler().Compile(ops)
	require.NoError(t, err)

	out := render(t, nodes)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{
		"#!/bin/sh",
		"package-manager-non-interactive",
		"remove-package b",
		"install-package a",
		"upgrade-package c",
		"purge-package d",
	}, lines, "operations must keep input order")
}

func TestGenericForce(t *testing.T) {
	ops := []operation.PackageOperation{
		operation.New("a", operation.WithForce()),
		operation.New("b", operation.WithAction(operation.Upgrade), operation.WithForce()),
	}

	nodes, err := NewGenericCompiler().Compile(ops)
	require.NoError(t, err)

	out := render(t, nodes)
	assert.Contains(t, out, "install-package --force a\n")
	assert.Contains(t, out, "upgrade-package --force b\n")
}

func TestPacmanPrimitives(t *testing.T) {
	ops := []operation.PackageOperation{
		operation.New("vim"),
		operation.New("nano", operation.WithAction(operation.Remove)),
		operation.New("emacs", operation.WithAction(operation.Remove), operation.WithPurge()),
		operation.New("git", operation.WithAction(operation.Upgrade)),
		operation.New("zsh", operation.WithForce()),
	}

	nodes, err := NewPacmanCompiler().Compile(ops)
	require.NoError(t, err)

	out := render(t, nodes)
	assert.Contains(t, out, "pacman -S --noconfirm vim\n")
	assert.Contains(t, out, "pacman -R --noconfirm nano\n")
	assert.Contains(t, out, "pacman -R -n --noconfirm emacs\n")
	assert.Contains(t, out, "pacman -S --noconfirm git\n")
	assert.Contains(t, out, "pacman -S --noconfirm -f zsh\n")
}

func TestGenericInvalidAction(t *testing.T) {
	ops := []operation.PackageOperation{
		{Name: "x", Action: operation.Action("bogus"), Priority: 50},
	}
	nodes, err := NewPacmanCompiler().Compile(ops)
	assert.Nil(t, nodes)
	assert.Error(t, err)
}

func TestDefaultRegistryCoversAllBackends(t *testing.T) {
	reg := DefaultRegistry()
	for _, b := range []hostinfo.Backend{
		hostinfo.Apt, hostinfo.Aptitude, hostinfo.Yum, hostinfo.Pacman, hostinfo.Other,
	} {
		c, ok := reg.Lookup(b)
		require.True(t, ok, "backend %s", b)
		assert.Equal(t, b, c.Backend())
	}
}
