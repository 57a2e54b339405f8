// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/flox-foundation/floxenv/cmd/floxenv/cli"
	"github.com/flox-foundation/floxenv/lib/activate"
	"github.com/flox-foundation/floxenv/lib/config"
	"github.com/flox-foundation/floxenv/lib/realise"
	"github.com/flox-foundation/floxenv/lib/resolver"
	"github.com/flox-foundation/floxenv/lib/store"
)

type buildParams struct {
	cli.JSONOutput
	Lockfile string `flag:"lockfile,l" desc:"path to the locked manifest"`
	System   string `flag:"system,s" desc:"target system (e.g. x86_64-linux)"`
	OutLink  string `flag:"out-link,o" desc:"create a symlink to the realized environment at this path"`
	Config   string `flag:"config" desc:"path to the floxenv configuration file"`
}

type buildResult struct {
	StorePath string `json:"store_path"`
	OutLink   string `json:"out_link,omitempty"`
}

func buildCommand() *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "build",
		Summary: "realize an environment from a lockfile",
		Usage:   "floxenv env build --lockfile <path> --system <system> [--out-link <path>] [--json]",
		Examples: []cli.Example{
			{
				Description: "realize for the current platform and link the result",
				Command:     "floxenv env build --lockfile manifest.lock --system x86_64-linux --out-link ./env",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(args []string) error {
			return runBuild(&params, args)
		},
	}
}

func runBuild(params *buildParams, args []string) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument %q", args[0])
	}
	if params.Lockfile == "" {
		return cli.Validation("--lockfile is required")
	}
	if params.System == "" {
		return cli.Validation("--system is required")
	}

	lockfile, err := os.ReadFile(params.Lockfile)
	if err != nil {
		return cli.Validation("reading lockfile: %v", err)
	}

	cfg, err := config.Load(params.Config)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger().With("command", "env/build")

	st, err := store.Open(cfg.Store.Root, logger)
	if err != nil {
		return cli.Internal("opening store: %v", err)
	}
	binary, err := resolver.FindBinary(cfg.Resolver.Binary)
	if err != nil {
		return err
	}

	realiser := &realise.Realiser{
		Resolver: &resolver.ExecResolver{Binary: binary},
		Store:    st,
		StateDir: cfg.Paths.State,
		Toolchain: activate.Toolchain{
			Bash:      cfg.Runtime.Bash,
			Coreutils: cfg.Runtime.Coreutils,
		},
		Logger: logger,
	}

	storePath, err := realiser.CreateEnvironment(context.Background(), lockfile, params.System)
	if err != nil {
		return cli.Categorize(err)
	}

	result := buildResult{StorePath: storePath}
	if params.OutLink != "" {
		link, err := createOutLink(params.OutLink, storePath)
		if err != nil {
			return cli.Internal("creating out-link: %v", err)
		}
		result.OutLink = link
	}

	if done, err := params.EmitJSON(result); done {
		return err
	}
	fmt.Println(storePath)
	return nil
}

// createOutLink points link at target, replacing an existing symlink
// atomically.
func createOutLink(link, target string) (string, error) {
	abs, err := filepath.Abs(link)
	if err != nil {
		return "", err
	}
	tmp := abs + ".tmp"
	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return abs, nil
}
