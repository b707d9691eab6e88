// Copyright 2026 Beanbag, Inc.
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the environment variable that points at a config
// file, checked when no --config flag is given.
const EnvConfigPath = "CLOUDFORMER_CONFIG"

// DefaultFileName is the config file looked up in the user's home
// directory as a last resort.
const DefaultFileName = ".cloudformer.toml"

// Config carries the operator-level defaults shared by the cloudformer
// commands and any stack tooling built on top of them.
type Config struct {
	// Region is the provisioning region stack tooling should target.
	Region string `toml:"region"`

	// OutputDir, when set, is where compiled templates are written if no
	// explicit output file is given.
	OutputDir string `toml:"output_dir"`

	// Params supplies default values for template parameters, keyed by
	// parameter name.
	Params map[string]string `toml:"params"`
}

// Load reads a TOML config file.
//
// When path is empty, the CLOUDFORMER_CONFIG environment variable is
// consulted, then ~/.cloudformer.toml. A file found through the fallback
// chain may be missing; a file named explicitly (flag or environment)
// must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, nil
		}
		path = filepath.Join(home, DefaultFileName)
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("Loading config file '%s': %s", path, err)
	}

	return cfg, nil
}
