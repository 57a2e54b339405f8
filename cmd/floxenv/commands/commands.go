// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete floxenv CLI command tree.
package commands

import (
	"fmt"

	"github.com/flox-foundation/floxenv/cmd/floxenv/cli"
	envcmd "github.com/flox-foundation/floxenv/cmd/floxenv/env"
	"github.com/flox-foundation/floxenv/lib/version"
)

// Root builds and returns the floxenv command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "floxenv",
		Description: `floxenv: reproducible developer environments.

Realize locked manifests into composed, content-addressed store paths
with generated activation scripts for bash, zsh, fish and tcsh.`,
		Subcommands: []*cli.Command{
			envcmd.Command(),
			{
				Name:    "version",
				Summary: "print version information",
				Run: func(args []string) error {
					fmt.Printf("floxenv %s\n", version.Version)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Realize an environment and link it into the working directory",
				Command:     "floxenv env build --lockfile manifest.lock --system x86_64-linux --out-link ./env",
			},
			{
				Description: "Show what a lockfile installs",
				Command:     "floxenv env inspect --lockfile manifest.lock",
			},
		},
	}
}
