// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for floxenv components.
//
// Configuration is loaded from a single file specified by:
//   - FLOXENV_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides. All
// fields have defaults, so running without a config file is supported:
// Default() returns a fully populated configuration.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvVar is the environment variable naming the config file.
const EnvVar = "FLOXENV_CONFIG"

// Config is the master configuration for floxenv.
type Config struct {
	// Store configures the content-addressed store.
	Store StoreConfig `yaml:"store"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Resolver configures the external package resolver.
	Resolver ResolverConfig `yaml:"resolver"`

	// Runtime configures the toolchain paths baked into generated
	// activation scripts.
	Runtime RuntimeConfig `yaml:"runtime"`
}

// StoreConfig configures the content-addressed store.
type StoreConfig struct {
	// Root is the store directory. Composed environments are inserted
	// under this directory and the directory string participates in
	// store path hashing, so changing it changes every path.
	Root string `yaml:"root"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// State is where runtime state is stored: the realization cache
	// (envs/) and persisted build logs (logs/).
	State string `yaml:"state"`
}

// ResolverConfig configures the external package resolver.
type ResolverConfig struct {
	// Binary is the resolver executable. A bare name is resolved on
	// PATH; an absolute path is used as-is.
	Binary string `yaml:"binary"`
}

// RuntimeConfig configures the toolchain referenced by generated
// activation scripts. These paths are recorded as references of the
// composed environment so garbage collection keeps them alive.
type RuntimeConfig struct {
	// Bash is the POSIX shell used in the activate script shebang.
	Bash string `yaml:"bash"`

	// Coreutils is a directory containing the text utilities the
	// activate script needs (sort, comm, mktemp). Prepended to an
	// internal PATH inside the script so activation does not depend
	// on the user's PATH.
	Coreutils string `yaml:"coreutils"`
}

// Default returns the default configuration. Store and state live under
// the user's state directory; the shell and coreutils are resolved from
// PATH.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}

	stateRoot := filepath.Join(home, ".local", "state", "floxenv")

	cfg := &Config{
		Store:    StoreConfig{Root: filepath.Join(stateRoot, "store")},
		Paths:    PathsConfig{State: stateRoot},
		Resolver: ResolverConfig{Binary: "floxenv-resolver"},
	}
	cfg.applyRuntimeDefaults()
	return cfg, nil
}

// Load reads the config file at path, or — when path is empty — from
// $FLOXENV_CONFIG. When neither names a file, Default() is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyRuntimeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyRuntimeDefaults fills empty runtime toolchain paths from PATH.
// Lookup failures are left as empty strings and caught by Validate when
// the toolchain is actually needed.
func (c *Config) applyRuntimeDefaults() {
	if c.Runtime.Bash == "" {
		if path, err := exec.LookPath("bash"); err == nil {
			c.Runtime.Bash = path
		}
	}
	if c.Runtime.Coreutils == "" {
		if path, err := exec.LookPath("sort"); err == nil {
			c.Runtime.Coreutils = filepath.Dir(path)
		}
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Store.Root == "" {
		return fmt.Errorf("store.root must be set")
	}
	if !filepath.IsAbs(c.Store.Root) {
		return fmt.Errorf("store.root must be absolute, got %q", c.Store.Root)
	}
	if c.Paths.State == "" {
		return fmt.Errorf("paths.state must be set")
	}
	if !filepath.IsAbs(c.Paths.State) {
		return fmt.Errorf("paths.state must be absolute, got %q", c.Paths.State)
	}
	if c.Resolver.Binary == "" {
		return fmt.Errorf("resolver.binary must be set")
	}
	return nil
}
