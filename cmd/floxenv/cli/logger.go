// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger for CLI commands.
// When stderr is a terminal it uses slog.TextHandler for readable
// output; when stderr is piped or redirected (CI, scripts) it uses
// slog.JSONHandler so log lines stay machine-parseable.
//
// Callers scope the logger with command context via With():
//
//	logger := cli.NewCommandLogger().With("command", "env/build")
func NewCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
