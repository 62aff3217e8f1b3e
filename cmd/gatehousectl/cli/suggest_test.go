// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"journal", "journal", 0},
		{"jounal", "journal", 1},
		{"bakcup", "backup", 2},
		{"lst", "list", 1},
		{"", "secret", 6},
		{"prune", "", 5},
		{"report", "restore", 3},
	}

	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "secret"},
		{Name: "report"},
		{Name: "journal"},
		{Name: "backup"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"jounal", "journal"},
		{"bakup", "backup"},
		{"secrt", "secret"},
		{"zzzzzzzzz", ""},
	}

	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.Bool("json", false, "output as JSON")
		flagSet.Int("limit", 20, "maximum rows")
		flagSet.String("config", "", "config file")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"close typo", []string{"--limti"}, "--limit"},
		{"typo with value", []string{"--confg=/etc/g.yaml"}, "--config"},
		{"defined flag skipped", []string{"--json", "--lmit"}, "--limit"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"no flags in args", []string{"positional"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, makeFlagSet()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
