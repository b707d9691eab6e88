// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beanbaginc/cloudformer/pkg/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cloudformer.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	return path
}

func TestLoadExplicitPath(t *testing.T) {
	path := writeConfig(t, `
region = "us-west-2"
output_dir = "/tmp/stacks"

[params]
KeyName = "dev-key"
InstanceType = "t3.small"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "us-west-2", cfg.Region)
	require.Equal(t, "/tmp/stacks", cfg.OutputDir)
	require.Equal(t, map[string]string{
		"KeyName":      "dev-key",
		"InstanceType": "t3.small",
	}, cfg.Params)
}

func TestLoadFromEnvVar(t *testing.T) {
	path := writeConfig(t, `region = "eu-central-1"`)
	t.Setenv(config.EnvConfigPath, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "eu-central-1", cfg.Region)
}

func TestLoadFromHomeDir(t *testing.T) {
	home := t.TempDir()
	err := os.WriteFile(filepath.Join(home, config.DefaultFileName),
		[]byte(`output_dir = "build"`), 0600)
	require.NoError(t, err)

	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("HOME", home)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "build", cfg.OutputDir)
}

func TestLoadMissingHomeConfigIsEmpty(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Config{}, cfg)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Loading config file")
}

func TestLoadMissingEnvVarPath(t *testing.T) {
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, `region = [`)

	_, err := config.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Loading config file")
}
