// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package activate

import (
	"fmt"
	"strings"
)

// Dialect is a supported shell family. The synthesizer emits one
// profile script per dialect and the entrypoint translates variable
// replay into each dialect's syntax.
type Dialect int

const (
	Bash Dialect = iota
	Zsh
	Fish
	Tcsh
)

// Dialects lists every supported dialect in emission order.
var Dialects = []Dialect{Bash, Zsh, Fish, Tcsh}

// ParseDialect maps a shell name to its dialect. A leading dash (login
// shell convention, e.g. "-zsh") is ignored.
func ParseDialect(name string) (Dialect, error) {
	switch strings.TrimPrefix(name, "-") {
	case "bash":
		return Bash, nil
	case "zsh":
		return Zsh, nil
	case "fish":
		return Fish, nil
	case "tcsh":
		return Tcsh, nil
	}
	return 0, fmt.Errorf("unsupported shell: %s", name)
}

func (d Dialect) String() string {
	switch d {
	case Bash:
		return "bash"
	case Zsh:
		return "zsh"
	case Fish:
		return "fish"
	case Tcsh:
		return "tcsh"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// ExportVar returns the dialect statement exporting name with the
// given literal value. The value is quoted so it never re-expands at
// shell time.
func (d Dialect) ExportVar(name, value string) string {
	switch d {
	case Fish:
		return fmt.Sprintf("set -gx %s %s", name, Quote(value))
	case Tcsh:
		return fmt.Sprintf("setenv %s %s", name, Quote(value))
	default:
		return fmt.Sprintf("export %s=%s", name, Quote(value))
	}
}

// UnsetVar returns the dialect statement removing name from the
// environment.
func (d Dialect) UnsetVar(name string) string {
	switch d {
	case Fish:
		return fmt.Sprintf("set -e %s", name)
	case Tcsh:
		return fmt.Sprintf("unsetenv %s", name)
	default:
		return fmt.Sprintf("unset %s", name)
	}
}

// SourceFile returns the dialect statement sourcing the script at
// path.
func (d Dialect) SourceFile(path string) string {
	return fmt.Sprintf("source %s", Quote(path))
}

// Quote single-quotes value for any of the supported dialects,
// replacing embedded single quotes with the '\'' escape. This is the
// nixpkgs escapeShellArg scheme: the value survives one round of shell
// parsing byte-for-byte with no expansion.
func Quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
