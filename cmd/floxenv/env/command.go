// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package env implements the "floxenv env" command group: realizing
// environments from locked manifests and inspecting lockfiles.
package env

import (
	"github.com/flox-foundation/floxenv/cmd/floxenv/cli"
)

// Command returns the "env" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "env",
		Summary: "realize and inspect environments",
		Description: `Realize developer environments from locked manifests.

An environment is a single store path composing every installed
package with the generated activation scripts. Realization is
deterministic: the same lockfile and system always produce the same
store path.`,
		Subcommands: []*cli.Command{
			buildCommand(),
			inspectCommand(),
		},
	}
}
