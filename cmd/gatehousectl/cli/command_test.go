// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommandExecuteDispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "gatehousectl",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "journal",
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					called = "journal"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"journal"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "journal" {
		t.Errorf("dispatched to %q, want %q", called, "journal")
	}
}

func TestCommandExecuteNestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "gatehousectl",
		Subcommands: []*Command{
			{
				Name: "journal",
				Subcommands: []*Command{
					{
						Name: "show",
						Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
							called = "journal show"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"journal", "show", "2f0a1b3c"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "journal show" {
		t.Errorf("dispatched to %q, want %q", called, "journal show")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "2f0a1b3c" {
		t.Errorf("args = %v, want [2f0a1b3c]", receivedArgs)
	}
}

func TestCommandExecuteFlagParsing(t *testing.T) {
	var limit int
	var positional string

	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 20, "maximum rows")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				positional = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--limit", "5", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if limit != 5 {
		t.Errorf("limit = %d, want 5", limit)
	}
	if positional != "extra" {
		t.Errorf("positional = %q, want %q", positional, "extra")
	}
}

func TestCommandExecuteUnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Bool("json", false, "output as JSON")
			flagSet.Int("limit", 20, "maximum rows")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error { return nil },
	}

	err := command.Execute([]string{"--limti"})
	if err == nil {
		t.Fatal("Execute succeeded with an unknown flag")
	}
	message := err.Error()
	if !strings.Contains(message, "did you mean --limit") {
		t.Errorf("error = %q, want a suggestion for --limit", message)
	}
	if !strings.Contains(message, "limti") {
		t.Errorf("error = %q, should name the bad flag", message)
	}
	if !strings.Contains(message, "--help") {
		t.Errorf("error = %q, should point to --help", message)
	}
}

func TestCommandExecuteUnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error { return nil },
	}

	err := command.Execute([]string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute succeeded with an unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for a distant flag", err.Error())
	}
}

func TestCommandExecuteUnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "gatehousectl",
		Subcommands: []*Command{
			{Name: "journal"},
			{Name: "backup"},
			{Name: "version"},
		},
	}

	err := root.Execute([]string{"jounal"})
	if err == nil {
		t.Fatal("Execute succeeded with an unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "journal"`) {
		t.Errorf("error = %q, want a suggestion for journal", err.Error())
	}
}

func TestCommandExecuteUnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "gatehousectl",
		Subcommands: []*Command{
			{Name: "journal"},
			{Name: "backup"},
		},
	}

	err := root.Execute([]string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute succeeded with an unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant input", err.Error())
	}
}

func TestCommandExecuteHelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "gatehousectl",
				Summary: "Boot supervisor operator tooling",
				Subcommands: []*Command{
					{Name: "journal", Summary: "Query the boot journal"},
				},
			}

			if err := root.Execute([]string{helpArg}); err != nil {
				t.Errorf("Execute(%q): %v", helpArg, err)
			}
		})
	}
}

func TestCommandExecuteHelpFlagAfterFlagsDefined(t *testing.T) {
	// --help is not a registered flag; pflag reports it as ErrHelp and
	// the dispatcher turns that into help output, not a parse error.
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Int("limit", 20, "maximum rows")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			t.Error("Run called for a help invocation")
			return nil
		},
	}

	if err := command.Execute([]string{"--limit", "3", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestCommandExecuteNoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "gatehousectl",
		Subcommands: []*Command{
			{Name: "journal", Summary: "Query the boot journal"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute succeeded without a subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommandPrintHelp(t *testing.T) {
	command := &Command{
		Name:        "gatehousectl",
		Description: "Operator tooling for the boot supervisor.",
		Subcommands: []*Command{
			{Name: "secret", Summary: "Manage sealed secret settings"},
			{Name: "journal", Summary: "Query the boot journal"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "Show the last boot report",
				Command:     "gatehousectl report show",
			},
			{
				Description: "Seal a settings file for the container identity",
				Command:     "gatehousectl secret seal -r age1... secret_settings.py",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Operator tooling for the boot supervisor.",
		"Usage:",
		"gatehousectl <command> [flags]",
		"Commands:",
		"secret",
		"Manage sealed secret settings",
		"journal",
		"Examples:",
		"gatehousectl report show",
		"Run 'gatehousectl <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommandPrintHelpWithFlags(t *testing.T) {
	command := &Command{
		Name:    "list",
		Summary: "List journaled boots",
		Usage:   "gatehousectl journal list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Int("limit", 20, "maximum rows")
			flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"gatehousectl journal list [flags]",
		"Flags:",
		"limit",
		"json",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommandFullName(t *testing.T) {
	root := &Command{Name: "gatehousectl"}
	journal := &Command{Name: "journal", parent: root}
	show := &Command{Name: "show", parent: journal}

	if got := root.fullName(); got != "gatehousectl" {
		t.Errorf("root.fullName() = %q", got)
	}
	if got := journal.fullName(); got != "gatehousectl journal" {
		t.Errorf("journal.fullName() = %q", got)
	}
	if got := show.fullName(); got != "gatehousectl journal show" {
		t.Errorf("show.fullName() = %q", got)
	}
}
