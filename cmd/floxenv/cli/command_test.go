// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesSubcommand(t *testing.T) {
	t.Parallel()

	ran := false
	root := &Command{
		Name: "floxenv",
		Subcommands: []*Command{
			{
				Name: "env",
				Subcommands: []*Command{
					{
						Name: "build",
						Run: func(args []string) error {
							ran = true
							return nil
						},
					},
				},
			},
		},
	}
	if err := root.Execute([]string{"env", "build"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Error("leaf command did not run")
	}
}

func TestExecuteSuggestsCommand(t *testing.T) {
	t.Parallel()

	root := &Command{
		Name: "floxenv",
		Subcommands: []*Command{
			{Name: "env", Run: func([]string) error { return nil }},
		},
	}
	err := root.Execute([]string{"emv"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "env"`) {
		t.Fatalf("error = %v, want env suggestion", err)
	}
}

func TestExecuteSuggestsFlag(t *testing.T) {
	t.Parallel()

	command := &Command{
		Name: "build",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
			fs.String("lockfile", "", "")
			return fs
		},
		Run: func([]string) error { return nil },
	}
	err := command.Execute([]string{"--lokfile", "x"})
	if err == nil || !strings.Contains(err.Error(), "--lockfile") {
		t.Fatalf("error = %v, want --lockfile suggestion", err)
	}
}

func TestExecutePassesRemainingArgs(t *testing.T) {
	t.Parallel()

	var got []string
	command := &Command{
		Name: "run",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
			fs.Bool("verbose", false, "")
			return fs
		},
		Run: func(args []string) error {
			got = args
			return nil
		},
	}
	if err := command.Execute([]string{"--verbose", "a", "b"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("args = %v, want [a b]", got)
	}
}

func TestExecuteGroupWithoutSubcommand(t *testing.T) {
	t.Parallel()

	root := &Command{
		Name:        "floxenv",
		Subcommands: []*Command{{Name: "env"}},
	}
	if err := root.Execute(nil); err == nil {
		t.Fatal("expected subcommand-required error")
	}
}

func TestPrintHelpListsSubcommands(t *testing.T) {
	t.Parallel()

	root := &Command{
		Name: "floxenv",
		Subcommands: []*Command{
			{Name: "env", Summary: "realize and inspect environments"},
			{Name: "version", Summary: "print version information"},
		},
	}
	var out strings.Builder
	root.PrintHelp(&out)
	help := out.String()
	for _, want := range []string{"env", "realize and inspect environments", "version"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"build", "build", 0},
		{"build", "biuld", 2},
		{"env", "emv", 1},
		{"", "abc", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExitErrorCode(t *testing.T) {
	t.Parallel()

	var err error = &ExitError{Code: 3}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 3 {
		t.Fatalf("ExitError does not carry its code")
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	wrapped := &ToolError{Category: CategoryInternal, Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is does not reach the inner error")
	}
}
