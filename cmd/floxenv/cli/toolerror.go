// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/flox-foundation/floxenv/lib/buildenv"
)

// ErrorCategory classifies command errors so that scripted callers of
// --json commands can branch without parsing message text.
type ErrorCategory string

const (
	// CategoryValidation: the caller provided invalid input. Fix the
	// input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryUnsupported: the lockfile or a package does not support
	// the requested system. Retrying will not help.
	CategoryUnsupported ErrorCategory = "unsupported"

	// CategoryConflict: two packages claim the same file at equal
	// priority. Adjust priorities or uninstall one.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryBuild: evaluation or building of a package failed. The
	// build log carries the detail.
	CategoryBuild ErrorCategory = "build"

	// CategoryInternal: unexpected failure, bug, or I/O error.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by command handlers. The
// category travels in JSON error output alongside the human-readable
// message.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap lets errors.Is and errors.As walk through the wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize maps an error from the realization pipeline onto its
// category, wrapping it when it is not already a ToolError.
func Categorize(err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	var (
		sysErr      *buildenv.SystemNotSupportedByLockfile
		pkgSysErr   *buildenv.PackageUnsupportedSystem
		conflictErr *buildenv.PackageConflict
		evalErr     *buildenv.PackageEvalFailure
		buildErr    *buildenv.PackageBuildFailure
	)
	switch {
	case errors.As(err, &sysErr), errors.As(err, &pkgSysErr):
		return &ToolError{Category: CategoryUnsupported, Err: err}
	case errors.As(err, &conflictErr):
		return &ToolError{Category: CategoryConflict, Err: err}
	case errors.As(err, &evalErr), errors.As(err, &buildErr):
		return &ToolError{Category: CategoryBuild, Err: err}
	}
	return &ToolError{Category: CategoryInternal, Err: err}
}
