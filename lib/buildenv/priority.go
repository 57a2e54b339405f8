// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package buildenv

// Priority is the totally ordered precedence of one realised package
// output. Lower compares first and wins file-path collisions.
//
// PackagePriority is the user-visible priority from the manifest.
// ParentOutPath disambiguates packages that tie on PackagePriority but
// come from different source packages, giving the pre-merge sort a
// stable, deterministic order. InternalIndex orders multiple outputs
// (out, bin, lib, doc, ...) of the same package: it follows the
// package's fixed output declaration order, so the primary output wins
// collisions between outputs of one derivation.
type Priority struct {
	PackagePriority int
	ParentOutPath   string
	InternalIndex   uint32
}

// Compare returns -1, 0, or +1 ordering p against other by the tuple
// (PackagePriority, ParentOutPath, InternalIndex).
func (p Priority) Compare(other Priority) int {
	if p.PackagePriority != other.PackagePriority {
		if p.PackagePriority < other.PackagePriority {
			return -1
		}
		return 1
	}
	if p.ParentOutPath != other.ParentOutPath {
		if p.ParentOutPath < other.ParentOutPath {
			return -1
		}
		return 1
	}
	if p.InternalIndex != other.InternalIndex {
		if p.InternalIndex < other.InternalIndex {
			return -1
		}
		return 1
	}
	return 0
}

// RealisedPackage is one package output ready for composition: its
// store path, whether it participates in the merge, and its priority.
// Created once during realisation and never mutated afterward.
type RealisedPackage struct {
	// Path is the content-addressed store path of this output.
	Path string

	// Active packages are merged into the environment; inactive ones
	// only contribute references.
	Active bool

	// Priority orders this output against all other candidates.
	Priority Priority
}
