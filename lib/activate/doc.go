// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package activate synthesizes the activation package of an
// environment: the generated entrypoint script, the static envrc, the
// activation hook and the per-shell profile scripts.
//
// Activation is modeled as a small state machine (Transition) keyed
// on whether the environment already appears in the process lineage.
// The first activation in a lineage sources the hook and records the
// resulting environment diff; every later activation replays the
// recorded diff without re-running hooks. The entrypoint installed at
// <env>/activate is the compiled form of that machine.
package activate
