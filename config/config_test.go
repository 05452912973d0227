// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFileOrFlags(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, Config{}, nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMergesProjectFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
jobs = 4
allocator = "dumb"
log_level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644))

	cfg, err := Load(dir, Config{}, nil)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Jobs)
	require.Equal(t, "dumb", cfg.Allocator)
	require.Equal(t, "debug", cfg.LogLevel)
	require.False(t, cfg.Reckless, "fields absent from the file keep their default")
}

func TestLoadFlagsOverrideProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`jobs = 4`), 0o644))

	cfg, err := Load(dir, Config{Jobs: 16}, map[string]bool{"jobs": true})
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Jobs, "an explicit flag always wins over the project file")
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`bogus_field = true`), 0o644))

	_, err := Load(dir, Config{}, nil)
	require.Error(t, err)
}
