// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/flox-foundation/floxenv/cmd/floxenv/cli"
	"github.com/flox-foundation/floxenv/lib/manifest"
)

type inspectParams struct {
	cli.JSONOutput
	Lockfile string `flag:"lockfile,l" desc:"path to the locked manifest"`
}

type inspectResult struct {
	Systems  []string                  `json:"systems"`
	Packages map[string][]inspectEntry `json:"packages"`
	Vars     map[string]string         `json:"vars,omitempty"`
}

type inspectEntry struct {
	InstallID string   `json:"install_id"`
	AttrPath  string   `json:"attr_path"`
	Priority  int      `json:"priority"`
	Outputs   []string `json:"outputs,omitempty"`
}

func inspectCommand() *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "show the systems and packages of a lockfile",
		Usage:   "floxenv env inspect --lockfile <path> [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(args []string) error {
			return runInspect(&params, args)
		},
	}
}

func runInspect(params *inspectParams, args []string) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument %q", args[0])
	}
	if params.Lockfile == "" {
		return cli.Validation("--lockfile is required")
	}

	m, err := manifest.ReadFile(params.Lockfile)
	if err != nil {
		return cli.Validation("%v", err)
	}

	result := inspectResult{
		Systems:  m.Systems(),
		Packages: map[string][]inspectEntry{},
		Vars:     m.Vars,
	}
	for _, system := range result.Systems {
		entries := []inspectEntry{}
		for _, pkg := range m.PackagesFor(system) {
			entries = append(entries, inspectEntry{
				InstallID: pkg.InstallID,
				AttrPath:  strings.Join(pkg.Package.AttrPath, "."),
				Priority:  pkg.Package.Priority,
				Outputs:   pkg.Package.OutputsToInstall,
			})
		}
		result.Packages[system] = entries
	}

	if done, err := params.EmitJSON(result); done {
		return err
	}

	fmt.Printf("systems: %s\n", strings.Join(result.Systems, ", "))
	for _, system := range result.Systems {
		fmt.Printf("\n%s:\n", system)
		tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "  ID\tATTR PATH\tPRIORITY\tOUTPUTS\n")
		for _, entry := range result.Packages[system] {
			outputs := strings.Join(entry.Outputs, ",")
			if outputs == "" {
				outputs = "all"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
				entry.InstallID, entry.AttrPath, entry.Priority, outputs)
		}
		tw.Flush()
	}
	return nil
}
