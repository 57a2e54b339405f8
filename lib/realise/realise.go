// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package realise

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/ansi"

	"github.com/flox-foundation/floxenv/lib/activate"
	"github.com/flox-foundation/floxenv/lib/buildenv"
	"github.com/flox-foundation/floxenv/lib/manifest"
	"github.com/flox-foundation/floxenv/lib/resolver"
	"github.com/flox-foundation/floxenv/lib/store"
)

// Realiser turns locked packages into materialized store paths and
// composes them into environments.
type Realiser struct {
	// Resolver evaluates package references and builds missing
	// outputs.
	Resolver resolver.Resolver

	// Store receives the composed environment and the synthesized
	// activation package.
	Store *store.Store

	// StateDir holds persisted build logs and the realization cache.
	StateDir string

	// Toolchain pins the interpreters baked into generated
	// activation scripts.
	Toolchain activate.Toolchain

	Logger *slog.Logger
}

// RealisePackage resolves one installed package and materializes its
// outputs. Every declared output is returned in declaration order;
// only the outputs the manifest installs are active. The first
// declared output is the parent of the whole group, which is what
// keeps outputs of one derivation from ever conflicting with each
// other.
func (r *Realiser) RealisePackage(ctx context.Context, pkg manifest.InstalledPackage, system string) ([]buildenv.RealisedPackage, error) {
	res, err := r.Resolver.Resolve(ctx, resolver.Request{
		Input:    pkg.Package.Input,
		AttrPath: pkg.Package.AttrPath,
		System:   system,
	})
	if err != nil {
		return nil, &buildenv.PackageEvalFailure{InstallID: pkg.InstallID, Err: err}
	}
	if !res.SystemSupported {
		return nil, &buildenv.PackageUnsupportedSystem{
			InstallID: pkg.InstallID,
			System:    system,
			Detail:    res.Message,
		}
	}
	if len(res.Outputs) == 0 {
		return nil, &buildenv.PackageEvalFailure{
			InstallID: pkg.InstallID,
			Detail:    "resolver returned no outputs",
		}
	}

	active, err := activeOutputs(pkg, res.Outputs)
	if err != nil {
		return nil, err
	}

	if missing := missingOutputs(res.Outputs); len(missing) > 0 {
		if err := r.build(ctx, pkg.InstallID, res.DrvPath, missing); err != nil {
			return nil, err
		}
	}

	parent := res.Outputs[0].Path
	realised := make([]buildenv.RealisedPackage, len(res.Outputs))
	for i, out := range res.Outputs {
		realised[i] = buildenv.RealisedPackage{
			Path:   out.Path,
			Active: active[out.Name],
			Priority: buildenv.Priority{
				PackagePriority: pkg.Package.Priority,
				ParentOutPath:   parent,
				InternalIndex:   uint32(i),
			},
		}
	}
	return realised, nil
}

// activeOutputs resolves the manifest's outputs-to-install against the
// declared outputs. No restriction means every output is installed.
func activeOutputs(pkg manifest.InstalledPackage, outputs []resolver.Output) (map[string]bool, error) {
	active := make(map[string]bool, len(outputs))
	if len(pkg.Package.OutputsToInstall) == 0 {
		for _, out := range outputs {
			active[out.Name] = true
		}
		return active, nil
	}
	declared := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		declared[out.Name] = true
	}
	for _, name := range pkg.Package.OutputsToInstall {
		if !declared[name] {
			return nil, &buildenv.PackageEvalFailure{
				InstallID: pkg.InstallID,
				Detail:    "output " + name + " is not declared by the package",
			}
		}
		active[name] = true
	}
	return active, nil
}

// missingOutputs returns the outputs not yet materialized on disk.
func missingOutputs(outputs []resolver.Output) []resolver.Output {
	var missing []resolver.Output
	for _, out := range outputs {
		if _, err := os.Lstat(out.Path); err != nil {
			missing = append(missing, out)
		}
	}
	return missing
}

// build invokes the resolver's builder for a derivation whose outputs
// are missing. The full log is persisted compressed under the state
// directory; the error carries the log with terminal escapes
// stripped.
func (r *Realiser) build(ctx context.Context, installID, drvPath string, missing []resolver.Output) error {
	if drvPath == "" {
		return &buildenv.PackageEvalFailure{
			InstallID: installID,
			Detail:    "outputs are missing and the resolver provided no derivation to build them",
		}
	}
	r.Logger.Info("building package",
		"component", "realise",
		"install_id", installID,
		"drv", drvPath,
		"missing_outputs", len(missing))

	var log bytes.Buffer
	buildErr := r.Resolver.EnsureBuilt(ctx, drvPath, &log)
	r.persistLog(installID, log.Bytes())
	if buildErr != nil {
		return &buildenv.PackageBuildFailure{
			InstallID: installID,
			Log:       ansi.Strip(log.String()),
			Err:       buildErr,
		}
	}
	for _, out := range missing {
		if _, err := os.Lstat(out.Path); err != nil {
			return &buildenv.PackageBuildFailure{
				InstallID: installID,
				Log:       ansi.Strip(log.String()),
				Err:       err,
			}
		}
	}
	return nil
}
