// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build version stamp for floxenv binaries.
package version

// Version is the floxenv release version. Overridden at build time via
//
//	-ldflags "-X github.com/flox-foundation/floxenv/lib/version.Version=1.2.3"
//
// The default marks locally built binaries.
var Version = "development"
