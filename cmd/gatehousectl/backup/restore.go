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

type restoreParams struct {
	Config cli.ConfigSource
	Dir    string
	To     string
}

func restoreCommand() *cli.Command {
	var params restoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Restore a snapshot to a database file",
		Description: `Restore a snapshot after a full integrity check. The destination
must not exist: restoring over a live database loses everything
written since the snapshot, so the current file has to be moved or
removed first, deliberately.

The restored file is written mode 0600 and owned by whoever runs
this command. Fix ownership to match the game user before booting.`,
		Usage: "gatehousectl backup restore <snapshot-id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("restore", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.Dir, "dir", "",
				"snapshot directory (default: <state-dir>/snapshots from the config)")
			flagSet.StringVar(&params.To, "to", "",
				"destination path (default: the configured game database)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Roll a game database back to the last pre-migration snapshot",
				Command: "mv /mnt/game/server/evennia.db3 /mnt/game/server/evennia.db3.bad &&\n" +
					"    GATEHOUSE_GAME_DIR=/mnt/game gatehousectl backup restore 20260825T153000Z-b1946ac9",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one snapshot ID, got %d arguments", len(args))
			}

			destination := params.To
			dir := params.Dir
			if dir == "" || destination == "" {
				cfg, err := params.Config.Load()
				if err != nil {
					return err
				}
				if dir == "" {
					dir = cfg.SnapshotDir()
				}
				if destination == "" {
					destination = cfg.Snapshot.Database
				}
			}
			return runRestore(dir, args[0], destination, os.Stdout)
		},
	}
}

func runRestore(dir, id, destination string, stdout io.Writer) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}
	if err := store.Restore(id, destination); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "restored %s -> %s\n", id, destination)
	return nil
}
