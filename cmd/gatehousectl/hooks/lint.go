// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	"github.com/gatehouse-project/gatehouse/lib/hookdef"
)

type lintParams struct {
	Config   cli.ConfigSource
	Manifest string
	JSON     bool
}

func lintCommand() *cli.Command {
	var params lintParams

	return &cli.Command{
		Name:    "lint",
		Summary: "Validate a hooks manifest",
		Description: `Parse and validate a hooks manifest the way the supervisor will at
boot. Prints every structural issue (missing names, unknown phases,
unparseable timeouts) and exits 1 if any are found.

The supervisor treats a missing manifest as "no hooks"; lint treats
it as an error, because linting a file that is not there is always a
mistake.`,
		Usage: "gatehousectl hooks lint [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("lint", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.Manifest, "manifest", "",
				"manifest file (default: hooks manifest from the config)")
			flagSet.BoolVar(&params.JSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Lint a manifest in a game checkout",
				Command:     "gatehousectl hooks lint --manifest mygame/server/conf/hooks.jsonc",
			},
			{
				Description: "Lint in CI, machine-readable",
				Command:     "gatehousectl hooks lint --manifest hooks.jsonc --json",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			path := params.Manifest
			if path == "" {
				cfg, err := params.Config.Load()
				if err != nil {
					return err
				}
				path = cfg.Hooks.Manifest
			}
			return runLint(path, params.JSON, os.Stdout)
		},
	}
}

// lintOutput is the JSON shape of a lint run.
type lintOutput struct {
	Path          string   `json:"path"`
	Valid         bool     `json:"valid"`
	PreMigration  int      `json:"pre_migration_hooks"`
	PostMigration int      `json:"post_migration_hooks"`
	Issues        []string `json:"issues"`
}

func runLint(path string, asJSON bool, stdout io.Writer) error {
	manifest, err := hookdef.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no hooks manifest at %s", path)
		}
		return err
	}

	issues := hookdef.Validate(manifest)
	preCount := len(manifest.HooksFor(hookdef.PhasePreMigration))
	postCount := len(manifest.HooksFor(hookdef.PhasePostMigration))

	if asJSON {
		output := lintOutput{
			Path:          path,
			Valid:         len(issues) == 0,
			PreMigration:  preCount,
			PostMigration: postCount,
			Issues:        issues,
		}
		if output.Issues == nil {
			output.Issues = []string{}
		}
		if err := cli.WriteJSON(stdout, output); err != nil {
			return err
		}
		if len(issues) > 0 {
			return &cli.ExitError{Code: 1}
		}
		return nil
	}

	if len(issues) > 0 {
		fmt.Fprintf(stdout, "%s: %d issue(s)\n", path, len(issues))
		for _, issue := range issues {
			fmt.Fprintf(stdout, "  %s\n", issue)
		}
		return &cli.ExitError{Code: 1}
	}

	fmt.Fprintf(stdout, "ok: %s (%d pre-migration, %d post-migration)\n", path, preCount, postCount)
	return nil
}
