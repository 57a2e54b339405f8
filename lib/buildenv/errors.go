// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package buildenv

import (
	"fmt"
	"strings"
)

// SystemNotSupportedByLockfile reports that the requested system has no
// package set in the manifest. Environment-level and fatal.
type SystemNotSupportedByLockfile struct {
	// System is the requested target system.
	System string

	// Supported lists the systems the manifest does carry, sorted.
	Supported []string
}

func (e *SystemNotSupportedByLockfile) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("%q not supported by this environment", e.System)
	}
	return fmt.Sprintf("%q not supported by this environment (supported: %s)",
		e.System, strings.Join(e.Supported, ", "))
}

// PackageUnsupportedSystem reports that a single package cannot be used
// on the target system. The caller decides whether this is tolerated or
// fatal; the environment-level policy is fatal.
type PackageUnsupportedSystem struct {
	InstallID string
	System    string
	Detail    string
}

func (e *PackageUnsupportedSystem) Error() string {
	return fmt.Sprintf("package %q is not available for this system (%q)", e.InstallID, e.System)
}

// PackageEvalFailure reports that the resolver could not determine an
// output for a package. Fatal to the whole realization.
type PackageEvalFailure struct {
	InstallID string
	Detail    string
	Err       error
}

func (e *PackageEvalFailure) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("package %q failed to evaluate: %s", e.InstallID, e.Detail)
	}
	return fmt.Sprintf("package %q failed to evaluate: %v", e.InstallID, e.Err)
}

func (e *PackageEvalFailure) Unwrap() error { return e.Err }

// PackageBuildFailure reports that building a resolved derivation
// failed. Log carries the build log with ANSI escapes stripped.
type PackageBuildFailure struct {
	InstallID string
	Log       string
	Err       error
}

func (e *PackageBuildFailure) Error() string {
	return fmt.Sprintf("failed to build package %q", e.InstallID)
}

func (e *PackageBuildFailure) Unwrap() error { return e.Err }

// FileConflict is raised by Build when two candidate files of equal
// package priority from different parents claim the same path. It
// names store-level files; the realiser rewrites it into a
// PackageConflict naming install IDs.
type FileConflict struct {
	// FileA is the file already linked into the environment.
	FileA string

	// FileB is the file that collided with it.
	FileB string

	// Priority is the shared package priority of both candidates.
	Priority int
}

func (e *FileConflict) Error() string {
	return fmt.Sprintf("collision between %q and %q at priority %d", e.FileA, e.FileB, e.Priority)
}

// PackageConflict is the user-facing form of a FileConflict: both
// install IDs, the colliding path, the shared priority, and how to fix
// it. Composition is aborted; no partial environment is produced.
type PackageConflict struct {
	InstallIDA string
	InstallIDB string
	Path       string
	Priority   int
}

func (e *PackageConflict) Error() string {
	return fmt.Sprintf(
		"%q conflicts with %q. Both packages provide the file %q\n\n"+
			"Resolve by uninstalling one of the conflicting packages "+
			"or setting the priority of the preferred package to a value lower than %d",
		e.InstallIDA, e.InstallIDB, e.Path, e.Priority)
}

// ActivationScriptBuildFailure reports an I/O error while writing the
// synthesized activation scripts. Fatal.
type ActivationScriptBuildFailure struct {
	Err error
}

func (e *ActivationScriptBuildFailure) Error() string {
	return fmt.Sprintf("failed to write activation scripts: %v", e.Err)
}

func (e *ActivationScriptBuildFailure) Unwrap() error { return e.Err }
