// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "separate value",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "equals form",
			args:     []string{"--config=/etc/bienesraices.yaml", "--help"},
			wantFlag: "/etc/bienesraices.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""

			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	for _, name := range []string{"addr", "base-url", "store", "database-url", "mail-driver", "metrics-addr", "log-format", "log-level"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "serve is missing --%s", name)
	}
}

func TestResolveConfigFile(t *testing.T) {
	base := t.TempDir()
	getenv := func(key string) string {
		if key == "XDG_CONFIG_HOME" {
			return base
		}
		return ""
	}

	configFile = ""
	assert.Empty(t, resolveConfigFile(getenv))

	dir := filepath.Join(base, "bienesraices")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: memory\n"), 0o600))
	assert.Equal(t, path, resolveConfigFile(getenv))

	configFile = "/explicit.yaml"
	t.Cleanup(func() { configFile = "" })
	assert.Equal(t, "/explicit.yaml", resolveConfigFile(getenv))
}
