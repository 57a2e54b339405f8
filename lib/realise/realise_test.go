// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package realise

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/flox-foundation/floxenv/lib/activate"
	"github.com/flox-foundation/floxenv/lib/buildenv"
	"github.com/flox-foundation/floxenv/lib/manifest"
	"github.com/flox-foundation/floxenv/lib/resolver"
	"github.com/flox-foundation/floxenv/lib/store"
)

// fakeResolver serves canned resolutions keyed by the last attr-path
// element and counts calls. EnsureBuilt materializes the pending
// outputs registered for the derivation, mimicking a builder.
type fakeResolver struct {
	resolutions  map[string]*resolver.Resolution
	pending      map[string][]string
	buildLog     string
	buildErr     error
	resolveCalls int
	buildCalls   int
}

func (f *fakeResolver) Resolve(_ context.Context, req resolver.Request) (*resolver.Resolution, error) {
	f.resolveCalls++
	res, ok := f.resolutions[req.AttrPath[len(req.AttrPath)-1]]
	if !ok {
		return nil, errors.New("attribute not found")
	}
	return res, nil
}

func (f *fakeResolver) EnsureBuilt(_ context.Context, drvPath string, buildLog io.Writer) error {
	f.buildCalls++
	io.WriteString(buildLog, f.buildLog)
	if f.buildErr != nil {
		return f.buildErr
	}
	for _, out := range f.pending[drvPath] {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// makeOutput materializes a fake package output with one file at
// relPath.
func makeOutput(t *testing.T, root, name, relPath string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	full := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(name), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func testRealiser(t *testing.T, res *fakeResolver) *Realiser {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(filepath.Join(t.TempDir(), "store"), logger)
	if err != nil {
		t.Fatal(err)
	}
	return &Realiser{
		Resolver: res,
		Store:    st,
		StateDir: t.TempDir(),
		Toolchain: activate.Toolchain{
			Bash:      "/nix/store/abc-bash/bin/bash",
			Coreutils: "/nix/store/def-coreutils/bin",
		},
		Logger: logger,
	}
}

func installed(id string, priority int, outputs ...string) manifest.InstalledPackage {
	return manifest.InstalledPackage{
		InstallID: id,
		Package: &manifest.LockedPackage{
			Input:            json.RawMessage(`{"type":"github"}`),
			AttrPath:         []string{"legacyPackages", "x86_64-linux", id},
			Priority:         priority,
			OutputsToInstall: outputs,
		},
	}
}

func TestRealisePackagePriorities(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	out := makeOutput(t, root, "hello-out", "bin/hello")
	man := makeOutput(t, root, "hello-man", "share/man/man1/hello.1")
	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"hello": {
			SystemSupported: true,
			Outputs: []resolver.Output{
				{Name: "out", Path: out},
				{Name: "man", Path: man},
			},
		},
	}}
	r := testRealiser(t, res)

	realised, err := r.RealisePackage(context.Background(), installed("hello", 3), "x86_64-linux")
	if err != nil {
		t.Fatalf("RealisePackage: %v", err)
	}
	if len(realised) != 2 {
		t.Fatalf("got %d realised packages, want 2", len(realised))
	}
	for i, rp := range realised {
		if !rp.Active {
			t.Errorf("output %d inactive without outputs-to-install", i)
		}
		want := buildenv.Priority{PackagePriority: 3, ParentOutPath: out, InternalIndex: uint32(i)}
		if rp.Priority != want {
			t.Errorf("output %d priority = %+v, want %+v", i, rp.Priority, want)
		}
	}
	if res.buildCalls != 0 {
		t.Errorf("builder invoked for materialized outputs")
	}
}

func TestRealisePackageOutputsToInstall(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	out := makeOutput(t, root, "jq-out", "bin/jq")
	doc := makeOutput(t, root, "jq-doc", "share/doc/jq")
	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"jq": {
			SystemSupported: true,
			Outputs: []resolver.Output{
				{Name: "out", Path: out},
				{Name: "doc", Path: doc},
			},
		},
	}}
	r := testRealiser(t, res)

	realised, err := r.RealisePackage(context.Background(), installed("jq", 5, "out"), "x86_64-linux")
	if err != nil {
		t.Fatalf("RealisePackage: %v", err)
	}
	if !realised[0].Active || realised[1].Active {
		t.Errorf("active flags = %v/%v, want true/false", realised[0].Active, realised[1].Active)
	}

	// Every declared output keeps its index even when inactive.
	if realised[1].Priority.InternalIndex != 1 {
		t.Errorf("inactive output lost its declaration index")
	}

	_, err = r.RealisePackage(context.Background(), installed("jq", 5, "nope"), "x86_64-linux")
	var evalErr *buildenv.PackageEvalFailure
	if !errors.As(err, &evalErr) {
		t.Fatalf("undeclared output error = %v, want PackageEvalFailure", err)
	}
}

func TestRealisePackageUnsupportedSystem(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"darwin-only": {SystemSupported: false, Message: "only on darwin"},
	}}
	r := testRealiser(t, res)

	_, err := r.RealisePackage(context.Background(), installed("darwin-only", 5), "x86_64-linux")
	var unsupported *buildenv.PackageUnsupportedSystem
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want PackageUnsupportedSystem", err)
	}
	if unsupported.InstallID != "darwin-only" || unsupported.Detail != "only on darwin" {
		t.Errorf("unexpected error detail: %+v", unsupported)
	}
}

func TestRealisePackageEvalFailure(t *testing.T) {
	t.Parallel()

	r := testRealiser(t, &fakeResolver{resolutions: map[string]*resolver.Resolution{}})
	_, err := r.RealisePackage(context.Background(), installed("ghost", 5), "x86_64-linux")
	var evalErr *buildenv.PackageEvalFailure
	if !errors.As(err, &evalErr) {
		t.Fatalf("error = %v, want PackageEvalFailure", err)
	}
}

func TestRealisePackageBuildsMissingOutputs(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "built-out")
	res := &fakeResolver{
		resolutions: map[string]*resolver.Resolution{
			"built": {
				SystemSupported: true,
				Outputs:         []resolver.Output{{Name: "out", Path: out}},
				DrvPath:         "/nix/store/xyz-built.drv",
			},
		},
		pending:  map[string][]string{"/nix/store/xyz-built.drv": {out}},
		buildLog: "building...\n",
	}
	r := testRealiser(t, res)

	realised, err := r.RealisePackage(context.Background(), installed("built", 5), "x86_64-linux")
	if err != nil {
		t.Fatalf("RealisePackage: %v", err)
	}
	if res.buildCalls != 1 {
		t.Fatalf("buildCalls = %d, want 1", res.buildCalls)
	}
	if realised[0].Path != out {
		t.Errorf("path = %q, want %q", realised[0].Path, out)
	}

	logs, err := filepath.Glob(filepath.Join(r.StateDir, "logs", "built-*.log.zst"))
	if err != nil || len(logs) != 1 {
		t.Errorf("persisted logs = %v (err %v), want one file", logs, err)
	}
}

func TestRealisePackageBuildFailureStripsANSI(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "never-built")
	res := &fakeResolver{
		resolutions: map[string]*resolver.Resolution{
			"broken": {
				SystemSupported: true,
				Outputs:         []resolver.Output{{Name: "out", Path: out}},
				DrvPath:         "/nix/store/xyz-broken.drv",
			},
		},
		buildLog: "\x1b[31merror:\x1b[0m compilation failed\n",
		buildErr: errors.New("builder exited 1"),
	}
	r := testRealiser(t, res)

	_, err := r.RealisePackage(context.Background(), installed("broken", 5), "x86_64-linux")
	var buildErr *buildenv.PackageBuildFailure
	if !errors.As(err, &buildErr) {
		t.Fatalf("error = %v, want PackageBuildFailure", err)
	}
	if buildErr.Log != "error: compilation failed\n" {
		t.Errorf("log not stripped: %q", buildErr.Log)
	}
}

const lockfileTemplate = `{
	"packages": {
		"x86_64-linux": {
			"hello": {
				"input": {"type": "github"},
				"attrPath": ["legacyPackages", "x86_64-linux", "hello"]
			},
			"jq": {
				"input": {"type": "github"},
				"attrPath": ["legacyPackages", "x86_64-linux", "jq"]
			}
		}
	},
	"vars": {"GREETING": "hi"}
}`

func TestCreateEnvironment(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	hello := makeOutput(t, root, "hello", "bin/hello")
	jq := makeOutput(t, root, "jq", "bin/jq")
	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"hello": {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: hello}}},
		"jq":    {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: jq}}},
	}}
	r := testRealiser(t, res)

	envPath, err := r.CreateEnvironment(context.Background(), []byte(lockfileTemplate), "x86_64-linux")
	if err != nil {
		t.Fatalf("CreateEnvironment: %v", err)
	}

	for _, name := range []string{"bin/hello", "bin/jq", "activate", "activate.d/envrc"} {
		if _, err := os.Stat(filepath.Join(envPath, name)); err != nil {
			t.Errorf("environment missing %s: %v", name, err)
		}
	}

	envrc, err := os.ReadFile(filepath.Join(envPath, "activate.d", "envrc"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(envrc), "export GREETING='hi'") {
		t.Errorf("envrc missing vars: %s", envrc)
	}

	info, err := r.Store.Info(envPath)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	for _, want := range []string{hello, jq} {
		found := false
		for _, ref := range info.References {
			if ref == want {
				found = true
			}
		}
		if !found {
			t.Errorf("reference %q not recorded (have %v)", want, info.References)
		}
	}
}

func TestCreateEnvironmentCacheHit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	hello := makeOutput(t, root, "hello", "bin/hello")
	jq := makeOutput(t, root, "jq", "bin/jq")
	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"hello": {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: hello}}},
		"jq":    {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: jq}}},
	}}
	r := testRealiser(t, res)

	first, err := r.CreateEnvironment(context.Background(), []byte(lockfileTemplate), "x86_64-linux")
	if err != nil {
		t.Fatalf("first realization: %v", err)
	}
	calls := res.resolveCalls

	second, err := r.CreateEnvironment(context.Background(), []byte(lockfileTemplate), "x86_64-linux")
	if err != nil {
		t.Fatalf("second realization: %v", err)
	}
	if second != first {
		t.Errorf("cache returned %q, want %q", second, first)
	}
	if res.resolveCalls != calls {
		t.Errorf("cache hit still called the resolver (%d -> %d)", calls, res.resolveCalls)
	}
}

func TestCreateEnvironmentConflict(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	one := makeOutput(t, root, "tool-one", "bin/clash")
	two := makeOutput(t, root, "tool-two", "bin/clash")
	res := &fakeResolver{resolutions: map[string]*resolver.Resolution{
		"one": {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: one}}},
		"two": {SystemSupported: true, Outputs: []resolver.Output{{Name: "out", Path: two}}},
	}}
	r := testRealiser(t, res)

	lockfile := `{
		"packages": {
			"x86_64-linux": {
				"one": {"input": {}, "attrPath": ["one"]},
				"two": {"input": {}, "attrPath": ["two"]}
			}
		}
	}`
	_, err := r.CreateEnvironment(context.Background(), []byte(lockfile), "x86_64-linux")
	var conflict *buildenv.PackageConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want PackageConflict", err)
	}
	ids := []string{conflict.InstallIDA, conflict.InstallIDB}
	sort.Strings(ids)
	if ids[0] != "one" || ids[1] != "two" {
		t.Errorf("conflict names %v, want install IDs one and two", ids)
	}
	if conflict.Priority != manifest.DefaultPriority {
		t.Errorf("conflict priority = %d, want %d", conflict.Priority, manifest.DefaultPriority)
	}
}

func TestCreateEnvironmentUnsupportedSystem(t *testing.T) {
	t.Parallel()

	r := testRealiser(t, &fakeResolver{})
	_, err := r.CreateEnvironment(context.Background(), []byte(lockfileTemplate), "aarch64-darwin")
	var unsupported *buildenv.SystemNotSupportedByLockfile
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want SystemNotSupportedByLockfile", err)
	}
	if len(unsupported.Supported) != 1 || unsupported.Supported[0] != "x86_64-linux" {
		t.Errorf("supported = %v", unsupported.Supported)
	}
}

func TestCacheKeyVariesWithSystem(t *testing.T) {
	t.Parallel()

	lockfile := []byte(lockfileTemplate)
	if CacheKey(lockfile, "x86_64-linux") == CacheKey(lockfile, "aarch64-linux") {
		t.Error("cache key must depend on the system")
	}
	if CacheKey(lockfile, "x86_64-linux") != CacheKey(lockfile, "x86_64-linux") {
		t.Error("cache key must be deterministic")
	}
}
