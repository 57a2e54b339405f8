// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// defaultProfileBin is checked after PATH when resolving the resolver
// binary by bare name. This matches the Determinate Nix installation
// layout, whose profile directory is outside PATH by default.
const defaultProfileBin = "/nix/var/nix/profiles/default/bin"

// FindBinary resolves the resolver executable. Absolute paths are used
// as-is; bare names are looked up on PATH and then in the standard
// profile directory.
func FindBinary(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("resolver binary %s: %w", name, err)
		}
		return name, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	profilePath := filepath.Join(defaultProfileBin, name)
	if _, err := os.Stat(profilePath); err == nil {
		return profilePath, nil
	}

	return "", fmt.Errorf("%s not found on PATH or at %s", name, profilePath)
}

// ExecResolver talks to the resolver binary, one subprocess per call.
//
// This subprocess boundary is deliberate isolation, not convenience:
// evaluation and first-time fetches open long-lived file descriptors,
// install signal handlers, and build partially initialized caches.
// Running them in a child that exits keeps none of that state in this
// process, which itself forks during activation dispatch. The child
// returns a typed JSON result on stdout; nothing else is shared.
type ExecResolver struct {
	// Binary is the resolver executable name or absolute path.
	Binary string
}

// Resolve runs "<binary> resolve" with the request on stdin and parses
// the Resolution from stdout. The child's stderr is captured and
// included in errors.
func (r *ExecResolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	binary, err := FindBinary(r.Binary)
	if err != nil {
		return nil, err
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding resolve request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, "resolve")
	command.Stdin = bytes.NewReader(input)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, classifyChildError("resolve", err, stderr.String())
	}

	var resolution Resolution
	if err := json.Unmarshal(stdout.Bytes(), &resolution); err != nil {
		return nil, fmt.Errorf("parsing resolver output: %w", err)
	}
	return &resolution, nil
}

// EnsureBuilt runs "<binary> build <drvPath>", streaming the build log
// (the child's stderr) to buildLog.
func (r *ExecResolver) EnsureBuilt(ctx context.Context, drvPath string, buildLog io.Writer) error {
	binary, err := FindBinary(r.Binary)
	if err != nil {
		return err
	}

	var tail tailBuffer
	command := exec.CommandContext(ctx, binary, "build", drvPath)
	if buildLog != nil {
		command.Stderr = io.MultiWriter(buildLog, &tail)
	} else {
		command.Stderr = &tail
	}

	if err := command.Run(); err != nil {
		return classifyChildError("build", err, tail.String())
	}
	return nil
}

// classifyChildError distinguishes a child that reported its own
// failure (non-zero exit, stderr explains) from one that died by
// signal, which surfaces as a generic fetch failure because the child
// never got to report anything.
func classifyChildError(op string, err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
		return fmt.Errorf("resolver %s terminated by signal: %w", op, err)
	}
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		return fmt.Errorf("resolver %s failed: %w", op, err)
	}
	return fmt.Errorf("resolver %s failed: %s", op, detail)
}

// tailBuffer keeps the last portion of what is written to it, bounding
// memory on long build logs while preserving the part users need (the
// failure is at the end).
type tailBuffer struct {
	buf bytes.Buffer
}

const tailLimit = 64 * 1024

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if t.buf.Len() > tailLimit {
		data := t.buf.Bytes()
		trimmed := make([]byte, tailLimit)
		copy(trimmed, data[len(data)-tailLimit:])
		t.buf.Reset()
		t.buf.Write(trimmed)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
