// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package realise orchestrates environment realization: it drives the
// external resolver to materialize every locked package, synthesizes
// the activation package, composes the result with lib/buildenv, and
// records it in the store. A content-addressed cache keyed on the
// lockfile makes repeated realizations of an unchanged lockfile free.
package realise
