// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package store implements floxenv's content-addressed store: an
// immutable directory of trees whose names are derived from their
// canonical NAR serialization, name, and reference set.
//
// Determinism is the core contract. The NAR stream encodes entry
// types, contents, the executable bit, and symlink targets in
// lexicographic entry order and nothing else, so identical inputs
// always produce identical store paths regardless of build machine,
// wall-clock time, or filesystem enumeration order.
//
// Each inserted path carries a PathInfo record (deterministic CBOR)
// naming its reference set, which is what keeps garbage collection
// correct: a path is reachable exactly when some root's transitive
// references include it.
package store
