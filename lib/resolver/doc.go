// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver defines the boundary to the external package
// resolver: the service that turns locked package references into
// concrete output store paths and builds missing derivations.
//
// The production implementation, ExecResolver, runs the resolver as a
// short-lived subprocess per request. Evaluation side effects (network
// fetches, cache initialization, signal handlers) stay inside the
// child and die with it; the parent only ever sees a typed JSON result
// on stdout or an exit status.
package resolver
