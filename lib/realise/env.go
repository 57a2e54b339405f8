// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package realise

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/flox-foundation/floxenv/lib/activate"
	"github.com/flox-foundation/floxenv/lib/buildenv"
	"github.com/flox-foundation/floxenv/lib/manifest"
)

// activationInstallID is the synthetic install ID the activation
// package appears under in conflict reports. Manifest validation
// keeps user priorities above zero, so a conflict against it can only
// come from a package that ships its own "activate" file.
const activationInstallID = "floxenv activation scripts"

// CreateEnvironment realizes every package of the lockfile for the
// given system, synthesizes the activation package, and composes
// everything into one store path. The operation is all-or-nothing: any
// package failure aborts the whole realization and nothing is added to
// the store.
func (r *Realiser) CreateEnvironment(ctx context.Context, lockfile []byte, system string) (string, error) {
	m, err := manifest.Parse(lockfile)
	if err != nil {
		return "", err
	}
	if !m.SupportsSystem(system) {
		return "", &buildenv.SystemNotSupportedByLockfile{
			System:    system,
			Supported: m.Systems(),
		}
	}

	key := CacheKey(lockfile, system)
	if path, ok := r.cachedEnv(key); ok {
		r.Logger.Debug("realization cache hit",
			"component", "realise", "path", path)
		return path, nil
	}

	var (
		packages []buildenv.RealisedPackage
		owners   = map[string]string{}
		refs     []string
	)
	for _, pkg := range m.PackagesFor(system) {
		realised, err := r.RealisePackage(ctx, pkg, system)
		if err != nil {
			return "", err
		}
		for _, rp := range realised {
			owners[rp.Path] = pkg.InstallID
			if rp.Active {
				refs = append(refs, rp.Path)
			}
		}
		packages = append(packages, realised...)
	}

	actPath, err := r.realiseActivation(m)
	if err != nil {
		return "", err
	}
	owners[actPath] = activationInstallID
	refs = append(refs, actPath)
	packages = append(packages, buildenv.RealisedPackage{
		Path:   actPath,
		Active: true,
		Priority: buildenv.Priority{
			PackagePriority: 0,
			ParentOutPath:   actPath,
		},
	})

	outDir, err := os.MkdirTemp("", "floxenv-compose-")
	if err != nil {
		return "", fmt.Errorf("creating composition directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := buildenv.Build(outDir, packages, r.Logger); err != nil {
		return "", rewriteConflict(err, owners)
	}

	envPath, err := r.Store.AddTree(outDir, "environment", refs)
	if err != nil {
		return "", err
	}
	if err := r.recordEnv(key, envPath); err != nil {
		return "", err
	}
	r.Logger.Info("environment realized",
		"component", "realise",
		"system", system,
		"packages", len(m.PackagesFor(system)),
		"path", envPath)
	return envPath, nil
}

// realiseActivation synthesizes the activation scripts and adds them
// to the store with the toolchain paths recorded as references.
func (r *Realiser) realiseActivation(m *manifest.Manifest) (string, error) {
	dir, err := os.MkdirTemp("", "floxenv-activate-")
	if err != nil {
		return "", &buildenv.ActivationScriptBuildFailure{Err: err}
	}
	defer os.RemoveAll(dir)

	if err := activate.Synthesize(dir, m, r.Toolchain, r.Logger); err != nil {
		return "", err
	}
	return r.Store.AddTree(dir, "activation-scripts",
		[]string{r.Toolchain.Bash, r.Toolchain.Coreutils})
}

// rewriteConflict turns a store-file-level FileConflict into the
// user-facing PackageConflict naming both install IDs. Other errors
// pass through unchanged.
func rewriteConflict(err error, owners map[string]string) error {
	var fc *buildenv.FileConflict
	if !errors.As(err, &fc) {
		return err
	}
	return &buildenv.PackageConflict{
		InstallIDA: ownerOf(fc.FileA, owners),
		InstallIDB: ownerOf(fc.FileB, owners),
		Path:       fc.FileB,
		Priority:   fc.Priority,
	}
}

// ownerOf maps a file inside a package's store path back to the
// install ID that contributed it.
func ownerOf(file string, owners map[string]string) string {
	for path, id := range owners {
		if file == path || strings.HasPrefix(file, path+string(os.PathSeparator)) {
			return id
		}
	}
	return file
}
