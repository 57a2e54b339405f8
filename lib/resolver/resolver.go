// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"encoding/json"
	"io"
)

// Output is one declared output of a resolved package. Outputs carry
// their declaration order: the slice order in Resolution.Outputs is
// the package's fixed output order, never a map-iteration order. The
// realiser derives internal priorities from it.
type Output struct {
	// Name is the output name (out, bin, lib, doc, ...).
	Name string `json:"name"`

	// Path is the store path of this output.
	Path string `json:"path"`
}

// Resolution is the result of resolving a locked package reference.
type Resolution struct {
	// SystemSupported is false when the package exists but cannot be
	// used on the requested system. Outputs is empty in that case and
	// Message explains why.
	SystemSupported bool `json:"system_supported"`

	// Message carries the resolver's diagnostic for unsupported
	// systems or other advisory detail.
	Message string `json:"message,omitempty"`

	// Outputs are the declared outputs in declaration order.
	Outputs []Output `json:"outputs"`

	// DrvPath is the derivation realizing these outputs, passed back
	// to EnsureBuilt when outputs are missing from the store.
	DrvPath string `json:"drv_path,omitempty"`
}

// Request is the resolve request sent to the resolver process.
type Request struct {
	// Input is the locked package-source reference from the manifest,
	// passed through opaquely.
	Input json.RawMessage `json:"input"`

	// AttrPath identifies the package within the source.
	AttrPath []string `json:"attr_path"`

	// System is the target platform.
	System string `json:"system"`
}

// Resolver is the external package resolver collaborator: it turns a
// locked package reference into concrete output store paths and builds
// derivations whose outputs are not yet materialized.
//
// Implementations must be safe for sequential use from a single
// realization; floxenv never calls them concurrently.
type Resolver interface {
	// Resolve evaluates the locked reference and returns its outputs.
	// An error means evaluation itself failed; an unsupported system
	// is not an error but a Resolution with SystemSupported false.
	Resolve(ctx context.Context, req Request) (*Resolution, error)

	// EnsureBuilt builds the derivation at drvPath so that all its
	// outputs exist. The build log is streamed to buildLog as it is
	// produced.
	EnsureBuilt(ctx context.Context, drvPath string, buildLog io.Writer) error
}
