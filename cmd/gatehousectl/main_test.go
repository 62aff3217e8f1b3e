// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
)

func TestRootCommandSubcommands(t *testing.T) {
	t.Parallel()

	root := rootCommand()

	want := []string{"report", "journal", "backup", "secret", "hooks", "version"}
	got := make([]string, 0, len(root.Subcommands))
	for _, sub := range root.Subcommands {
		got = append(got, sub.Name)
	}
	if len(got) != len(want) {
		t.Fatalf("subcommands = %v, want %v", got, want)
	}
	for index, name := range want {
		if got[index] != name {
			t.Errorf("subcommands[%d] = %q, want %q", index, got[index], name)
		}
	}
}

// TestCommandTreeWellFormed walks the full command tree and checks
// the structural rules the dispatcher relies on: every command is
// either a group or runnable, names are unique among siblings, and
// usage strings match the command's actual path.
func TestCommandTreeWellFormed(t *testing.T) {
	t.Parallel()

	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		fullPath := strings.Join(path, " ")

		if command.Name == "" {
			t.Errorf("%s: command with empty name", fullPath)
		}
		if command.Name != strings.ToLower(command.Name) || strings.ContainsRune(command.Name, ' ') {
			t.Errorf("%s: command names are lowercase single words", fullPath)
		}
		if command != root && command.Summary == "" {
			t.Errorf("%s: missing summary", fullPath)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither runnable nor a group", fullPath)
		}
		if command.Usage != "" && !strings.HasPrefix(command.Usage, fullPath) {
			t.Errorf("%s: usage %q does not start with the command path", fullPath, command.Usage)
		}

		seen := make(map[string]bool, len(command.Subcommands))
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", fullPath, sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

// walkCommands recursively visits every command in the tree, calling
// visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
