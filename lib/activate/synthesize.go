// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package activate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flox-foundation/floxenv/lib/buildenv"
	"github.com/flox-foundation/floxenv/lib/manifest"
)

// scriptsDir is the subdirectory of the environment holding
// everything the entrypoint sources.
const scriptsDir = "activate.d"

// Synthesize writes the activation package for a manifest into dir:
// the executable entrypoint plus the activate.d tree with the static
// envrc, the hook script, one profile script per dialect and the
// startup shims for shells that cannot take an rc file on the command
// line. The resulting tree is added to the store and merged into the
// environment like any other package.
func Synthesize(dir string, m *manifest.Manifest, tc Toolchain, logger *slog.Logger) error {
	sub := filepath.Join(dir, scriptsDir)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return &buildenv.ActivationScriptBuildFailure{Err: err}
	}

	if err := writeScript(filepath.Join(dir, "activate"), Entrypoint(tc), 0o755); err != nil {
		return &buildenv.ActivationScriptBuildFailure{Err: err}
	}
	if err := writeScript(filepath.Join(sub, "envrc"), Envrc(m.Vars), 0o644); err != nil {
		return &buildenv.ActivationScriptBuildFailure{Err: err}
	}

	hook, err := hookScript(m.Hook, logger)
	if err != nil {
		return &buildenv.ActivationScriptBuildFailure{Err: err}
	}
	if hook != "" {
		if err := writeScript(filepath.Join(sub, "hook-on-activate"), hook, 0o644); err != nil {
			return &buildenv.ActivationScriptBuildFailure{Err: err}
		}
	}

	for _, d := range Dialects {
		if err := writeScript(filepath.Join(sub, d.String()), ProfileScript(m.Profile, d), 0o644); err != nil {
			return &buildenv.ActivationScriptBuildFailure{Err: err}
		}
	}

	if err := writeShims(sub); err != nil {
		return &buildenv.ActivationScriptBuildFailure{Err: err}
	}
	return nil
}

// Envrc renders the static variable assignments from the manifest's
// vars section as a bash fragment. Names are emitted sorted so the
// environment builds reproducibly, and values are quoted so they
// never re-expand.
func Envrc(vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Static environment variables.\n")
	for _, name := range names {
		fmt.Fprintf(&b, "export %s=%s\n", name, Quote(vars[name]))
	}
	return b.String()
}

// hookScript resolves the manifest's hook declaration to script text.
// An inline hook and a hook file are mutually exclusive; the legacy
// script field still works but is reported as deprecated.
func hookScript(h *manifest.Hook, logger *slog.Logger) (string, error) {
	if h == nil {
		return "", nil
	}
	if h.OnActivate != "" && h.File != "" {
		return "", fmt.Errorf("hook declares both onActivate and file")
	}
	if h.File != "" {
		text, err := os.ReadFile(h.File)
		if err != nil {
			return "", fmt.Errorf("reading hook file: %w", err)
		}
		return string(text), nil
	}
	if h.OnActivate != "" {
		return h.OnActivate, nil
	}
	if h.Script != "" {
		logger.Warn("hook.script is deprecated; use hook.onActivate",
			"component", "activate")
		return h.Script, nil
	}
	return "", nil
}

// ProfileScript renders the shell-entry script for one dialect: the
// common fragment first so dialect-specific code can override it,
// then the dialect's own fragment.
func ProfileScript(p *manifest.Profile, d Dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Profile script for %s shells.\n", d)
	if p == nil {
		return b.String()
	}
	if p.Common != "" {
		b.WriteString(p.Common)
		if !strings.HasSuffix(p.Common, "\n") {
			b.WriteByte('\n')
		}
	}
	var own string
	switch d {
	case Bash:
		own = p.Bash
	case Zsh:
		own = p.Zsh
	case Fish:
		own = p.Fish
	case Tcsh:
		own = p.Tcsh
	}
	if own != "" {
		b.WriteString(own)
		if !strings.HasSuffix(own, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// zshrc is the ZDOTDIR shim for interactive zsh: restore the caller's
// startup files, then enter the environment.
const zshrc = `if [ -n "${_FLOX_ORIG_ZDOTDIR:-}" ]; then
	ZDOTDIR="$_FLOX_ORIG_ZDOTDIR"
else
	unset ZDOTDIR
fi
export ZDOTDIR
[ -f "${ZDOTDIR:-$HOME}/.zshrc" ] && source "${ZDOTDIR:-$HOME}/.zshrc"
source "$FLOX_ENV/activate.d/zsh"
`

// tcshrc is the HOME shim for interactive tcsh, which has no other
// way to inject startup code.
const tcshrc = `if ( $?_FLOX_ORIG_HOME ) then
	setenv HOME "$_FLOX_ORIG_HOME"
	unsetenv _FLOX_ORIG_HOME
	if ( -f "$HOME/.tcshrc" ) then
		source "$HOME/.tcshrc"
	endif
endif
source "$FLOX_ENV/activate.d/tcsh"
`

func writeShims(sub string) error {
	zdot := filepath.Join(sub, "zdotdir")
	if err := os.MkdirAll(zdot, 0o755); err != nil {
		return err
	}
	if err := writeScript(filepath.Join(zdot, ".zshrc"), zshrc, 0o644); err != nil {
		return err
	}
	tcshHome := filepath.Join(sub, "tcsh-home")
	if err := os.MkdirAll(tcshHome, 0o755); err != nil {
		return err
	}
	return writeScript(filepath.Join(tcshHome, ".tcshrc"), tcshrc, 0o644)
}

func writeScript(path, text string, mode os.FileMode) error {
	if err := os.WriteFile(path, []byte(text), mode); err != nil {
		return err
	}
	// WriteFile mode is masked by umask; scripts must stay
	// executable regardless.
	return os.Chmod(path, mode)
}
