// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package activate

import (
	"fmt"
	"strings"
)

// Toolchain pins the interpreters the generated entrypoint depends
// on. Activation must work from a caller whose PATH is arbitrary, so
// every external binary the script runs is an absolute store path.
type Toolchain struct {
	// Bash is the interpreter for the entrypoint itself.
	Bash string
	// Coreutils is the bin directory holding mktemp, sort, comm, cut,
	// env and sed.
	Coreutils string
}

// Entrypoint compiles the activation state machine into the bash
// script installed as <env>/activate. The script and Transition agree
// on every path through the machine; the Go side exists so the
// protocol can be tested without a shell.
func Entrypoint(tc Toolchain) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#! %s\n", tc.Bash)
	b.WriteString(header)
	fmt.Fprintf(&b, "_coreutils=%s\n", Quote(tc.Coreutils))
	fmt.Fprintf(&b, "_default_shell=%s\n\n", Quote(tc.Bash))
	b.WriteString(argParse)
	b.WriteString(dialectDetect(Dialects))
	b.WriteString(lineageCheck)
	b.WriteString(guards)
	b.WriteString(firstActivation)
	b.WriteString(reactivation)
	b.WriteString(emitReplay(Dialects))
	b.WriteString(dispatch(Dialects))
	return b.String()
}

const header = `# Generated by floxenv; do not edit.
set -euo pipefail

_floxenv_fatal() {
	echo "floxenv: $*" 1>&2
	exit 1
}

# The environment root is wherever this script lives. The script file
# itself may be reached through a symlink but its directory is the
# environment, so only the directory is resolved.
FLOX_ENV="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd -P)"
export FLOX_ENV

`

const argParse = `FLOX_SHELL="${FLOX_SHELL:-${SHELL:-$_default_shell}}"
_turbo="${FLOX_TURBO:-}"
_in_place=""
_command=()
while [ $# -gt 0 ]; do
	case "$1" in
	--in-place)
		_in_place=1
		shift
		;;
	--turbo)
		_turbo=1
		shift
		;;
	--shell)
		[ $# -ge 2 ] || _floxenv_fatal "--shell requires an argument"
		FLOX_SHELL="$2"
		shift 2
		;;
	--)
		shift
		_command=("$@")
		break
		;;
	*)
		_floxenv_fatal "unknown argument: $1"
		;;
	esac
done

if [ -n "$_in_place" ]; then
	_mode="in-place"
elif [ ${#_command[@]} -gt 0 ]; then
	_mode="command"
else
	_mode="interactive"
fi

`

// dialectDetect emits the shell-name switch. The recognized names
// come from the Go dialect list so the script and ParseDialect can
// never drift apart.
func dialectDetect(dialects []Dialect) string {
	names := make([]string, len(dialects))
	for i, d := range dialects {
		names[i] = d.String()
	}
	var b strings.Builder
	b.WriteString(`_dialect="${FLOX_SHELL##*/}"
_dialect="${_dialect#-}"
case "$_dialect" in
`)
	fmt.Fprintf(&b, "%s) ;;\n", strings.Join(names, "|"))
	b.WriteString(`*)
	_floxenv_fatal "unsupported shell: $FLOX_SHELL"
	;;
esac

`)
	return b.String()
}

const lineageCheck = `_entry="first"
case ":${FLOX_ENV_DIRS:-}:" in
*:"$FLOX_ENV":*)
	_entry="reactivate"
	;;
esac

if [ -z "${_FLOX_ACTIVATION_STATE_DIR:-}" ]; then
	export _FLOX_ACTIVATION_STATE_DIR="$("$_coreutils/mktemp" -d "${TMPDIR:-/tmp}/floxenv.XXXXXX")"
fi
_statedir="$_FLOX_ACTIVATION_STATE_DIR/${FLOX_ENV##*/}"

`

const guards = `if [ -n "$_turbo" ] && [ "$_mode" != "command" ]; then
	_floxenv_fatal "turbo activation requires a command"
fi
if [ "$_entry" = "reactivate" ]; then
	if [ "$_mode" = "interactive" ]; then
		_floxenv_fatal "environment is already active in this shell: $FLOX_ENV"
	fi
	if [ ! -r "$_statedir/add.env" ] || [ ! -r "$_statedir/del.env" ]; then
		_floxenv_fatal "activation state is missing for $FLOX_ENV; the environment cannot be re-entered"
	fi
fi

`

// Snapshots are line oriented: a variable whose value contains a
// newline is not diffed or replayed faithfully. Activation variables
// are paths and flags, which never do.
const firstActivation = `if [ "$_entry" = "first" ]; then
	"$_coreutils/mkdir" -p "$_statedir"
	"$_coreutils/env" | "$_coreutils/sort" >"$_statedir/start.env"

	export FLOX_ENV_DIRS="$FLOX_ENV${FLOX_ENV_DIRS:+:$FLOX_ENV_DIRS}"
	export PATH="$FLOX_ENV/bin:$FLOX_ENV/sbin:$PATH"
	export MANPATH="$FLOX_ENV/share/man:${MANPATH:-}"

	if [ -z "${FLOX_NO_PROFILES:-}" ] && [ -d "$FLOX_ENV/etc/profile.d" ]; then
		for _script in "$FLOX_ENV/etc/profile.d/"*.sh; do
			# Anything a profile script prints would corrupt in-place
			# replay, which owns stdout.
			[ -e "$_script" ] && . "$_script" 1>&2
		done
		unset _script
	fi
	if [ -f "$FLOX_ENV/activate.d/envrc" ]; then
		. "$FLOX_ENV/activate.d/envrc"
	fi
	if [ -z "${FLOX_NO_PROFILES:-}" ] && [ -f "$FLOX_ENV/activate.d/hook-on-activate" ]; then
		. "$FLOX_ENV/activate.d/hook-on-activate" 1>&2
	fi

	"$_coreutils/env" | "$_coreutils/sort" >"$_statedir/end.env"
	"$_coreutils/comm" -13 "$_statedir/start.env" "$_statedir/end.env" >"$_statedir/add.env"
	"$_coreutils/cut" -d= -f1 "$_statedir/start.env" | "$_coreutils/sort" -u >"$_statedir/start.names"
	"$_coreutils/cut" -d= -f1 "$_statedir/end.env" | "$_coreutils/sort" -u >"$_statedir/end.names"
	"$_coreutils/comm" -23 "$_statedir/start.names" "$_statedir/end.names" >"$_statedir/del.env"
fi

`

const reactivation = `if [ "$_entry" = "reactivate" ]; then
	while IFS= read -r _name; do
		[ -n "$_name" ] && unset "$_name" || true
	done <"$_statedir/del.env"
	while IFS='=' read -r _name _value; do
		[ -n "$_name" ] && export "$_name=$_value"
	done <"$_statedir/add.env"
	unset _name _value
fi

`

// replayFormats returns the printf formats the in-place emitter uses
// for one dialect: one for unset, one for export of an already
// shell-quoted value.
func replayFormats(d Dialect) (unsetFmt, exportFmt string) {
	switch d {
	case Fish:
		return `set -e %s\n`, `set -gx %s '%s'\n`
	case Tcsh:
		return `unsetenv %s\n`, `setenv %s '%s'\n`
	default:
		return `unset %s\n`, `export %s='%s'\n`
	}
}

// emitReplay emits the bash helpers translating environment state
// into statements in the caller's dialect: one function exporting a
// single variable, one replaying the recorded diff. Values are
// single-quoted with sed applying the same escape Quote applies in
// Go.
func emitReplay(dialects []Dialect) string {
	var b strings.Builder
	b.WriteString(`_floxenv_emit_export() {
	local _name="$1" _value
	_value="$(printf '%s' "$2" | "$_coreutils/sed" "s/'/'\\\\''/g")"
	case "$_dialect" in
`)
	writeReplayArms(&b, dialects, func(d Dialect) string {
		_, exportFmt := replayFormats(d)
		return fmt.Sprintf(`printf "%s" "$_name" "$_value"`, exportFmt)
	})
	b.WriteString(`	esac
}

_floxenv_emit_replay() {
	local _name _value
	while IFS= read -r _name; do
		[ -n "$_name" ] || continue
		case "$_dialect" in
`)
	writeReplayArms(&b, dialects, func(d Dialect) string {
		unsetFmt, _ := replayFormats(d)
		return fmt.Sprintf(`printf '%s' "$_name"`, unsetFmt)
	})
	b.WriteString(`		esac
	done <"$_statedir/del.env"
	while IFS='=' read -r _name _value; do
		[ -n "$_name" ] || continue
		_floxenv_emit_export "$_name" "$_value"
	done <"$_statedir/add.env"
}

`)
	return b.String()
}

// writeReplayArms groups dialects sharing a statement form into
// combined case arms, keeping Bash last as the catch-all.
func writeReplayArms(b *strings.Builder, dialects []Dialect, stmt func(Dialect) string) {
	for _, d := range dialects {
		if d == Bash || d == Zsh {
			continue
		}
		fmt.Fprintf(b, "\t\t%s) %s ;;\n", d, stmt(d))
	}
	fmt.Fprintf(b, "\t\t*) %s ;;\n", stmt(Bash))
}

// interactiveDispatch returns the exec line entering an interactive
// shell for one dialect. Each shell has its own mechanism for
// injecting startup code; the synthesizer lays out the matching
// files.
func interactiveDispatch(d Dialect) string {
	switch d {
	case Bash:
		return `exec "$FLOX_SHELL" --rcfile "$FLOX_ENV/activate.d/bash"`
	case Zsh:
		return `export _FLOX_ORIG_ZDOTDIR="${ZDOTDIR:-}"
	export ZDOTDIR="$FLOX_ENV/activate.d/zdotdir"
	exec "$FLOX_SHELL"`
	case Fish:
		return `exec "$FLOX_SHELL" --init-command "source '$FLOX_ENV/activate.d/fish'"`
	case Tcsh:
		return `export _FLOX_ORIG_HOME="$HOME"
	export HOME="$FLOX_ENV/activate.d/tcsh-home"
	exec "$FLOX_SHELL"`
	}
	return ""
}

// commandDispatch returns the exec line running the requested command
// under a shell that has sourced the dialect profile script first.
func commandDispatch(d Dialect) string {
	switch d {
	case Bash, Zsh:
		return fmt.Sprintf(`exec "$FLOX_SHELL" -c '. "$FLOX_ENV/activate.d/%s"; exec "$0" "$@"' "${_command[@]}"`, d)
	case Fish:
		return `exec "$FLOX_SHELL" -c 'source "$FLOX_ENV/activate.d/fish"; exec $argv' "${_command[@]}"`
	case Tcsh:
		return `exec "$FLOX_SHELL" -c 'source "$FLOX_ENV/activate.d/tcsh"; exec $argv:q' "${_command[@]}"`
	}
	return ""
}

// dispatch emits the final mode switch: in-place prints and exits,
// the other two modes exec and never return.
func dispatch(dialects []Dialect) string {
	var b strings.Builder
	b.WriteString(`case "$_mode" in
in-place)
	# The caller evals stdout, so the lineage and state variables the
	# snapshot diff cannot carry (they are set before the start
	# snapshot) are emitted explicitly. Without them a later re-entry
	# from the caller's shell would not find its recorded state.
	_floxenv_emit_export FLOX_ENV "$FLOX_ENV"
	_floxenv_emit_export FLOX_ENV_DIRS "$FLOX_ENV_DIRS"
	_floxenv_emit_export _FLOX_ACTIVATION_STATE_DIR "$_FLOX_ACTIVATION_STATE_DIR"
	_floxenv_emit_replay
	if [ -z "${FLOX_NO_PROFILES:-}" ]; then
		printf 'source %s\n' "'$FLOX_ENV/activate.d/$_dialect'"
	fi
	exit 0
	;;
command)
	if [ -n "$_turbo" ] || [ -n "${FLOX_NO_PROFILES:-}" ]; then
		exec "${_command[@]}"
	fi
	case "$_dialect" in
`)
	for _, d := range dialects {
		fmt.Fprintf(&b, "\t%s)\n\t\t%s\n\t\t;;\n", d, commandDispatch(d))
	}
	b.WriteString(`	esac
	;;
interactive)
	if [ -n "${FLOX_NO_PROFILES:-}" ]; then
		exec "$FLOX_SHELL"
	fi
	case "$_dialect" in
`)
	for _, d := range dialects {
		fmt.Fprintf(&b, "\t%s)\n\t%s\n\t\t;;\n", d, interactiveDispatch(d))
	}
	b.WriteString(`	esac
	;;
esac
_floxenv_fatal "activation dispatch fell through"
`)
	return b.String()
}
