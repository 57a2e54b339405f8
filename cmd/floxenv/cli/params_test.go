// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlagsTypes(t *testing.T) {
	t.Parallel()

	type params struct {
		Lockfile string   `flag:"lockfile,l" desc:"path"`
		Verbose  bool     `flag:"verbose" default:"true"`
		Jobs     int      `flag:"jobs" default:"4"`
		Systems  []string `flag:"systems" default:"x86_64-linux,aarch64-linux"`
		Ignored  string
	}
	var p params
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := fs.Parse([]string{"-l", "m.lock", "--jobs", "8"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Lockfile != "m.lock" {
		t.Errorf("Lockfile = %q", p.Lockfile)
	}
	if !p.Verbose {
		t.Error("bool default not applied")
	}
	if p.Jobs != 8 {
		t.Errorf("Jobs = %d", p.Jobs)
	}
	if len(p.Systems) != 2 {
		t.Errorf("Systems default = %v", p.Systems)
	}
	if fs.Lookup("ignored") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlagsEmbedded(t *testing.T) {
	t.Parallel()

	type params struct {
		JSONOutput
		Lockfile string `flag:"lockfile"`
	}
	var p params
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.OutputJSON {
		t.Error("embedded --json flag not bound")
	}
}

func TestBindFlagsRejectsNonPointer(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(struct{}{}, fs); err == nil {
		t.Fatal("expected error for non-pointer params")
	}
}

func TestBindFlagsRejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	type params struct {
		Bad float64 `flag:"bad"`
	}
	var p params
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, fs); err == nil {
		t.Fatal("expected error for unsupported field type")
	}
}
