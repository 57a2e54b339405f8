// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the floxenv binary:
// the command tree with dispatch and help, struct-tag flag binding on
// pflag, categorized command errors, and the shared logging and JSON
// output conventions.
package cli
