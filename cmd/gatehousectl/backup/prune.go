// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
)

type pruneParams struct {
	Config cli.ConfigSource
	Dir    string
	Keep   int
	DryRun bool
}

func pruneCommand() *cli.Command {
	var params pruneParams

	return &cli.Command{
		Name:    "prune",
		Summary: "Remove snapshots beyond the retention count",
		Description: `Remove the oldest snapshots beyond the retention count. The
supervisor prunes after every successful snapshot, so this is mainly
for tightening retention on an existing volume or clearing space
after lowering it.

Snapshots with corrupt manifests are never pruned.`,
		Usage: "gatehousectl backup prune [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("prune", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.Dir, "dir", "",
				"snapshot directory (default: <state-dir>/snapshots from the config)")
			flagSet.IntVar(&params.Keep, "keep", -1,
				"snapshots to retain (default: retention count from the config; 0 removes all)")
			flagSet.BoolVar(&params.DryRun, "dry-run", false, "print what would be removed without removing it")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "See what a tighter retention would remove",
				Command:     "gatehousectl backup prune --keep 2 --dry-run",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			dir := params.Dir
			keep := params.Keep
			if dir == "" || keep < 0 {
				cfg, err := params.Config.Load()
				if err != nil {
					return err
				}
				if dir == "" {
					dir = cfg.SnapshotDir()
				}
				if keep < 0 {
					keep = cfg.Snapshot.Keep
				}
			}
			return runPrune(dir, keep, params.DryRun, os.Stdout)
		},
	}
}

func runPrune(dir string, keep int, dryRun bool, stdout io.Writer) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}

	if dryRun {
		manifests, listErr := store.List()
		if len(manifests) <= keep {
			fmt.Fprintf(stdout, "nothing to prune (%d snapshots, keeping %d)\n", len(manifests), keep)
			return listErr
		}
		for _, manifest := range manifests[keep:] {
			fmt.Fprintf(stdout, "would remove %s (%s)\n", manifest.ID, formatSize(manifest.BlobSize))
		}
		return listErr
	}

	removed, pruneErr := store.Prune(keep)
	for _, id := range removed {
		fmt.Fprintf(stdout, "removed %s\n", id)
	}
	if pruneErr != nil {
		return pruneErr
	}
	if len(removed) == 0 {
		fmt.Fprintf(stdout, "nothing to prune (keeping %d)\n", keep)
	}
	return nil
}
