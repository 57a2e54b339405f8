// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package activate

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flox-foundation/floxenv/lib/manifest"
)

// hostToolchain locates a bash and a coreutils bin directory on the
// test host. Tests running the generated entrypoint end to end skip
// when the host cannot provide them.
func hostToolchain(t *testing.T) Toolchain {
	t.Helper()
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not on PATH")
	}
	mktemp, err := exec.LookPath("mktemp")
	if err != nil {
		t.Skip("mktemp not on PATH")
	}
	coreutils := filepath.Dir(mktemp)
	for _, tool := range []string{"mkdir", "env", "sort", "comm", "cut", "sed"} {
		if _, err := os.Stat(filepath.Join(coreutils, tool)); err != nil {
			t.Skipf("%s not found in %s", tool, coreutils)
		}
	}
	return Toolchain{Bash: bash, Coreutils: coreutils}
}

// hostEnvironment synthesizes an activatable environment whose hook
// appends a line to the file named by FLOX_HOOK_COUNTER, so tests can
// count hook executions.
func hostEnvironment(t *testing.T, tc Toolchain) string {
	t.Helper()
	dir := t.TempDir()
	m := &manifest.Manifest{
		Vars: map[string]string{"GREETING": "hello"},
		Hook: &manifest.Hook{OnActivate: "echo hook-ran >>\"$FLOX_HOOK_COUNTER\"\n"},
	}
	if err := Synthesize(dir, m, tc, discard()); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	return dir
}

// activationEnviron builds a minimal process environment for the
// entrypoint: no inherited lineage, a private TMPDIR, and the hook
// counter file.
func activationEnviron(t *testing.T, tc Toolchain, counter string) []string {
	t.Helper()
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + t.TempDir(),
		"TMPDIR=" + t.TempDir(),
		"FLOX_SHELL=" + tc.Bash,
		"FLOX_HOOK_COUNTER=" + counter,
	}
}

func runActivation(t *testing.T, environ []string, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Env = environ
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s %v: %v\nstdout:\n%s\nstderr:\n%s",
			name, args, err, stdout.String(), stderr.String())
	}
	return stdout.String()
}

func hookRuns(t *testing.T, counter string) int {
	t.Helper()
	data, err := os.ReadFile(counter)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(data), "hook-ran")
}

// The eval of the in-place output must carry everything a later
// re-entry needs: the lineage variable and the activation state
// directory, not just the snapshot diff. Re-entering in place from
// the same shell then converges instead of failing on missing state.
func TestActivateInPlaceConverges(t *testing.T) {
	t.Parallel()

	tc := hostToolchain(t)
	env := hostEnvironment(t, tc)
	counter := filepath.Join(t.TempDir(), "counter")

	driver := `set -euo pipefail
_act="$1"
eval "$("$_act" --in-place)"
[ -n "${_FLOX_ACTIVATION_STATE_DIR:-}" ] || { echo "state dir not exported"; exit 64; }
[ "${FLOX_ENV:-}" = "$(cd "$(dirname "$_act")" && pwd -P)" ] || { echo "FLOX_ENV not exported"; exit 65; }
[ "${GREETING:-}" = hello ] || { echo "vars not applied"; exit 66; }
eval "$("$_act" --in-place)"
[ "${GREETING:-}" = hello ] || { echo "vars lost on re-entry"; exit 67; }
echo converged
`
	out := runActivation(t, activationEnviron(t, tc, counter),
		tc.Bash, "-c", driver, "activation-driver", filepath.Join(env, "activate"))

	if !strings.Contains(out, "converged") {
		t.Errorf("driver did not converge:\n%s", out)
	}
	if n := hookRuns(t, counter); n != 1 {
		t.Errorf("hook ran %d times, want exactly 1", n)
	}
}

func TestActivateCommandReentry(t *testing.T) {
	t.Parallel()

	tc := hostToolchain(t)
	env := hostEnvironment(t, tc)
	counter := filepath.Join(t.TempDir(), "counter")
	activate := filepath.Join(env, "activate")

	// Nested activation of the same root: the inner run must replay
	// the recorded diff instead of re-running the hook.
	out := runActivation(t, activationEnviron(t, tc, counter),
		activate, "--", activate, "--", tc.Bash, "-c", `echo "nested:${GREETING:-}"`)

	if !strings.Contains(out, "nested:hello") {
		t.Errorf("inner command did not see the environment:\n%s", out)
	}
	if n := hookRuns(t, counter); n != 1 {
		t.Errorf("hook ran %d times across nested activations, want exactly 1", n)
	}
}

func TestActivateNoProfiles(t *testing.T) {
	t.Parallel()

	tc := hostToolchain(t)
	env := hostEnvironment(t, tc)
	counter := filepath.Join(t.TempDir(), "counter")
	activate := filepath.Join(env, "activate")
	environ := append(activationEnviron(t, tc, counter), "FLOX_NO_PROFILES=1")

	// Variables still apply, but the hook must not run.
	out := runActivation(t, environ, activate, "--", tc.Bash, "-c", `echo "vars:${GREETING:-unset}"`)
	if !strings.Contains(out, "vars:hello") {
		t.Errorf("static vars missing under FLOX_NO_PROFILES:\n%s", out)
	}
	if n := hookRuns(t, counter); n != 0 {
		t.Errorf("hook ran %d times under FLOX_NO_PROFILES, want 0", n)
	}

	// The in-place output must not ask the caller to source profile
	// scripts either.
	out = runActivation(t, environ, activate, "--in-place")
	if strings.Contains(out, "activate.d") {
		t.Errorf("in-place output sources profile scripts under FLOX_NO_PROFILES:\n%s", out)
	}
}
