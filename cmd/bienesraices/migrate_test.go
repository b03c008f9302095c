// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bienesraices/bienesraices/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "2", wantVersion: 2},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "non-numeric", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty string", input: "", wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only", input: "   ", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

// fakeMigrator records calls and serves a fixed version state.
type fakeMigrator struct {
	version  uint
	dirty    bool
	pending  []uint
	applied  []uint
	upErr    error
	calls    []string
	steps    int
	forced   int
	closed   bool
	closeErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return nil
}

func (f *fakeMigrator) PendingMigrations() ([]uint, error) { return f.pending, nil }
func (f *fakeMigrator) AppliedMigrations() ([]uint, error) { return f.applied, nil }

func (f *fakeMigrator) Close() error {
	f.closed = true
	return f.closeErr
}

type migrateHarness struct {
	migrator *fakeMigrator
	gotURL   string
	env      map[string]string
}

func (h *migrateHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile = ""

	root := &cobra.Command{Use: "bienesraices", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	root.AddCommand(newMigrateCmdWithDeps(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			h.gotURL = url
			return h.migrator, nil
		},
		Getenv: func(key string) string { return h.env[key] },
	}))

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"migrate"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func newMigrateHarness() *migrateHarness {
	return &migrateHarness{
		migrator: &fakeMigrator{},
		env:      map[string]string{"DATABASE_URL": "postgres://env/db"},
	}
}

func TestMigrateUp(t *testing.T) {
	h := newMigrateHarness()
	h.migrator.pending = []uint{1, 2}

	out, err := h.run(t, "up")
	require.NoError(t, err)

	assert.Equal(t, []string{"up"}, h.migrator.calls)
	assert.True(t, h.migrator.closed)
	assert.Equal(t, "postgres://env/db", h.gotURL)
	assert.Contains(t, out, "Applying 2 migration(s)")
	assert.Contains(t, out, "applied 000001_create_accounts")
	assert.Contains(t, out, "applied 000002_account_token_index")
}

func TestMigrate_DefaultsToUp(t *testing.T) {
	h := newMigrateHarness()

	out, err := h.run(t)
	require.NoError(t, err)
	assert.Empty(t, h.migrator.calls, "nothing pending, nothing applied")
	assert.Contains(t, out, "No pending migrations")
}

func TestMigrateUp_Failure(t *testing.T) {
	h := newMigrateHarness()
	h.migrator.pending = []uint{1}
	h.migrator.upErr = errors.New("syntax error")

	_, err := h.run(t, "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	assert.True(t, h.migrator.closed)
}

func TestMigrateDown(t *testing.T) {
	t.Run("one step by default", func(t *testing.T) {
		h := newMigrateHarness()
		out, err := h.run(t, "down")
		require.NoError(t, err)
		assert.Equal(t, -1, h.migrator.steps)
		assert.Contains(t, out, "Rolled back 1 migration(s)")
	})

	t.Run("explicit steps", func(t *testing.T) {
		h := newMigrateHarness()
		_, err := h.run(t, "down", "--steps", "2")
		require.NoError(t, err)
		assert.Equal(t, -2, h.migrator.steps)
	})

	t.Run("all", func(t *testing.T) {
		h := newMigrateHarness()
		_, err := h.run(t, "down", "--all")
		require.NoError(t, err)
		assert.Equal(t, []string{"down"}, h.migrator.calls)
	})

	t.Run("rejects zero steps", func(t *testing.T) {
		h := newMigrateHarness()
		_, err := h.run(t, "down", "--steps", "0")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_STEPS")
		assert.Empty(t, h.migrator.calls)
	})
}

func TestMigrateStatus(t *testing.T) {
	h := newMigrateHarness()
	h.migrator.version = 1
	h.migrator.dirty = true
	h.migrator.applied = []uint{1}
	h.migrator.pending = []uint{2}

	out, err := h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1 (dirty")
	assert.Contains(t, out, "Applied: 1")
	assert.Contains(t, out, "000001_create_accounts")
	assert.Contains(t, out, "Pending: 1")
	assert.Contains(t, out, "000002_account_token_index")
}

func TestMigrateForce(t *testing.T) {
	h := newMigrateHarness()

	out, err := h.run(t, "force", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, h.migrator.forced)
	assert.Contains(t, out, "Forced schema version to 1")

	_, err = h.run(t, "force", "x")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_DatabaseURLResolution(t *testing.T) {
	t.Run("missing everywhere", func(t *testing.T) {
		h := newMigrateHarness()
		h.env = nil
		_, err := h.run(t, "status")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("flag beats environment", func(t *testing.T) {
		h := newMigrateHarness()
		_, err := h.run(t, "status", "--database-url", "postgres://flag/db")
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag/db", h.gotURL)
	})

	t.Run("config file beats environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o600))

		h := newMigrateHarness()
		_, err := h.run(t, "--config", path, "status")
		require.NoError(t, err)
		assert.Equal(t, "postgres://file/db", h.gotURL)
	})
}
