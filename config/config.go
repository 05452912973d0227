// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config loads biasect's static preferences: an optional
// project file merged underneath whatever the CLI flags set
// explicitly. Grounded in nomad's command/agent config-merge idiom —
// defaults, then file, then flags, each layer only overriding fields
// the layer above actually set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/hcl"
	homedir "github.com/mitchellh/go-homedir"
)

// FileName is the project config file biasect looks for in the
// repository root, e.g. `.biasect.hcl`.
const FileName = ".biasect.hcl"

// Config is the fully merged set of preferences a run needs. Every
// field has a default (see Default) that the project file or a CLI
// flag may override.
type Config struct {
	Jobs      int    `hcl:"jobs" mapstructure:"jobs"`
	Reckless  bool   `hcl:"reckless" mapstructure:"reckless"`
	RepoPath  string `hcl:"repo_path" mapstructure:"repo_path"`
	Allocator string `hcl:"allocator" mapstructure:"allocator"`
	LogLevel  string `hcl:"log_level" mapstructure:"log_level"`
	LogJSON   bool   `hcl:"log_json" mapstructure:"log_json"`
}

// Default returns the baseline preferences applied before any file or
// flag is consulted.
func Default() Config {
	return Config{
		Jobs:      1,
		Reckless:  false,
		RepoPath:  ".",
		Allocator: "basic",
		LogLevel:  "info",
		LogJSON:   false,
	}
}

// Load resolves Default(), overlays the project file found at
// repoPath/.biasect.hcl (if any), then overlays cliFlags — the only
// layer explicitly supplied by the operator. cliFlags wins every
// conflict, since flags are explicit per-invocation intent and a
// project file is a standing preference.
func Load(repoPath string, cliFlags Config, flagsSet map[string]bool) (Config, error) {
	cfg := Default()

	path, err := homedir.Expand(filepath.Join(repoPath, FileName))
	if err != nil {
		return Config{}, fmt.Errorf("expanding config path: %w", err)
	}

	if raw, err := os.ReadFile(path); err == nil {
		fileCfg, err := parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg, fileSetFields(raw))
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg = merge(cfg, cliFlags, flagsSet)
	return cfg, nil
}

// parse decodes HCL project-file bytes into a Config via mapstructure,
// the same two-step (hcl.Decode into a generic map, then mapstructure
// into the typed struct) nomad's own config loader uses so that
// unknown or misspelled keys are reported clearly rather than silently
// ignored.
func parse(raw []byte) (Config, error) {
	var generic map[string]any
	if err := hcl.Decode(&generic, string(raw)); err != nil {
		return Config{}, err
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(generic); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileSetFields reports every top-level key present in the project
// file, so merge only overlays keys the operator actually wrote.
func fileSetFields(raw []byte) map[string]bool {
	var generic map[string]any
	if err := hcl.Decode(&generic, string(raw)); err != nil {
		return nil
	}
	set := make(map[string]bool, len(generic))
	for k := range generic {
		set[k] = true
	}
	return set
}

// merge overlays src onto base for every field named in set, which is
// keyed by the struct's hcl tag name (jobs, reckless, repo_path, ...).
// A nil set overlays nothing, leaving base untouched.
func merge(base, src Config, set map[string]bool) Config {
	out := base
	if set["jobs"] {
		out.Jobs = src.Jobs
	}
	if set["reckless"] {
		out.Reckless = src.Reckless
	}
	if set["repo_path"] {
		out.RepoPath = src.RepoPath
	}
	if set["allocator"] {
		out.Allocator = src.Allocator
	}
	if set["log_level"] {
		out.LogLevel = src.LogLevel
	}
	if set["log_json"] {
		out.LogJSON = src.LogJSON
	}
	return out
}
