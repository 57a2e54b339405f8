// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest defines the locked manifest model: the immutable,
// version-pinned description of an environment that the realiser turns
// into a composed store path.
//
// Manifests are authored and exchanged as JSON, optionally extended
// with // line comments, /* block comments */, and trailing commas
// (JSONC). Parsing strips the extensions before unmarshalling, so both
// forms are accepted everywhere a manifest is read.
package manifest
