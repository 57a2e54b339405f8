// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildenv composes realised package outputs into a single
// merged directory tree, resolving same-path collisions by priority.
//
// The merge is all-or-nothing: a composed environment is either fully
// consistent or not produced at all. A priority tie between two
// different packages claiming the same file aborts composition with a
// FileConflict rather than silently picking a winner.
//
// The package also defines the realisation error taxonomy shared by
// the realiser and the CLI.
package buildenv
