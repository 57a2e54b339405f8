// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package activate

import "errors"

// State names a point in the activation lifecycle of one environment
// root within one process lineage. The generated entrypoint script is
// a compiled form of this machine; Transition is the authoritative
// model the generator and the tests share.
type State int

const (
	// Unactivated: the root does not appear in the lineage chain.
	Unactivated State = iota
	// FirstActivation: the entrypoint is computing the environment
	// diff for the first time in this lineage. Hooks run here and
	// only here.
	FirstActivation
	// Reactivating: the root is already in the lineage; the recorded
	// diff is replayed and hooks are skipped.
	Reactivating
	// Active: replay or diff capture finished; the entrypoint
	// dispatches into the requested mode.
	Active
)

func (s State) String() string {
	switch s {
	case Unactivated:
		return "unactivated"
	case FirstActivation:
		return "first-activation"
	case Reactivating:
		return "reactivating"
	case Active:
		return "active"
	}
	return "invalid"
}

// Mode selects what the entrypoint does once the environment is
// active. The three modes are mutually exclusive.
type Mode int

const (
	// ModeCommand execs a command inside the environment and never
	// returns to the caller's shell.
	ModeCommand Mode = iota
	// ModeInteractive replaces the entrypoint with an interactive
	// shell whose startup files source the environment's profile
	// script.
	ModeInteractive
	// ModeInPlace prints dialect statements to stdout for the calling
	// shell to eval, then exits.
	ModeInPlace
)

func (m Mode) String() string {
	switch m {
	case ModeCommand:
		return "command"
	case ModeInteractive:
		return "interactive"
	case ModeInPlace:
		return "in-place"
	}
	return "invalid"
}

// Request captures everything the entrypoint knows before it commits
// to a path through the machine.
type Request struct {
	// AlreadyInLineage is true when the environment root appears in
	// the activation chain inherited from a parent process.
	AlreadyInLineage bool
	// HaveReplayState is true when the recorded add/del sets from the
	// first activation are readable.
	HaveReplayState bool
	Mode            Mode
	// Command is the argv to exec in ModeCommand.
	Command []string
	// Turbo skips the shell-dialect startup entirely and execs the
	// command directly. Only meaningful in ModeCommand.
	Turbo bool
}

// Plan is the committed path: which entry state handles environment
// setup and how the active environment is used afterwards.
type Plan struct {
	Entry State
	// RunHooks is true exactly when Entry is FirstActivation.
	RunHooks bool
	// Replay is true when the recorded diff must be applied before
	// dispatch.
	Replay bool
	Mode   Mode
	Turbo  bool
}

var (
	// ErrAlreadyActive: an interactive activation was requested for a
	// root that is already active in this lineage. There is nothing
	// to do; starting a nested shell would only hide the outer one.
	ErrAlreadyActive = errors.New("environment is already active in this shell")
	// ErrMissingReplayState: the lineage claims the root is active
	// but the recorded diff is gone. Continuing would produce an
	// environment unrelated to the first activation, so this is
	// fatal.
	ErrMissingReplayState = errors.New("activation state is missing; the environment cannot be re-entered")
	// ErrNoCommand: command mode with an empty argv.
	ErrNoCommand = errors.New("command mode requires a command")
	// ErrTurboNeedsCommand: turbo only makes sense when there is a
	// command to exec.
	ErrTurboNeedsCommand = errors.New("turbo activation requires a command")
)

// Transition resolves a Request into a Plan or rejects it as a
// protocol violation.
func Transition(req Request) (Plan, error) {
	if req.Mode == ModeCommand && len(req.Command) == 0 {
		return Plan{}, ErrNoCommand
	}
	if req.Turbo && req.Mode != ModeCommand {
		return Plan{}, ErrTurboNeedsCommand
	}
	if !req.AlreadyInLineage {
		return Plan{
			Entry:    FirstActivation,
			RunHooks: true,
			Mode:     req.Mode,
			Turbo:    req.Turbo,
		}, nil
	}
	if req.Mode == ModeInteractive {
		return Plan{}, ErrAlreadyActive
	}
	if !req.HaveReplayState {
		return Plan{}, ErrMissingReplayState
	}
	return Plan{
		Entry:  Reactivating,
		Replay: true,
		Mode:   req.Mode,
		Turbo:  req.Turbo,
	}, nil
}
