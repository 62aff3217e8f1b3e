// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// gatehousectl is the operator CLI for gatehouse-managed game
// volumes: boot reports, the boot journal, database snapshots,
// sealed secrets, and hook manifest validation. It is built into the
// game image next to the gatehouse supervisor and works against a
// mounted volume from outside a container just as well.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	backupcmd "github.com/gatehouse-project/gatehouse/cmd/gatehousectl/backup"
	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	hookscmd "github.com/gatehouse-project/gatehouse/cmd/gatehousectl/hooks"
	journalcmd "github.com/gatehouse-project/gatehouse/cmd/gatehousectl/journal"
	reportcmd "github.com/gatehouse-project/gatehouse/cmd/gatehousectl/report"
	secretcmd "github.com/gatehouse-project/gatehouse/cmd/gatehousectl/secret"
	"github.com/gatehouse-project/gatehouse/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own diagnostics (like hooks lint)
		// return an ExitError with the desired exit code. Don't print
		// a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

// rootCommand builds the complete gatehousectl command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "gatehousectl",
		Description: `gatehousectl: operate gatehouse-managed game volumes.

The gatehouse supervisor boots the game and records what it did:
a boot report, a journal of every boot, and pre-migration database
snapshots. gatehousectl reads that state and manages the sealed
settings secrets the supervisor decrypts at boot.

Point it at a volume with GATEHOUSE_GAME_DIR or --config; inside a
game container the defaults already match the supervisor's.`,
		Subcommands: []*cli.Command{
			reportcmd.Command(),
			journalcmd.Command(),
			backupcmd.Command(),
			secretcmd.Command(),
			hookscmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("gatehousectl %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "What did the last boot do",
				Command:     "GATEHOUSE_GAME_DIR=/mnt/game gatehousectl report show",
			},
			{
				Description: "Boot history of a volume",
				Command:     "GATEHOUSE_GAME_DIR=/mnt/game gatehousectl journal list",
			},
			{
				Description: "Roll back a failed migration",
				Command:     "gatehousectl backup restore 20260825T153000Z-b1946ac9",
			},
			{
				Description: "Seal production settings for the image",
				Command:     "gatehousectl secret seal secret_settings.py -r age1ql3z...",
			},
			{
				Description: "Validate a hooks manifest in CI",
				Command:     "gatehousectl hooks lint --manifest server/conf/hooks.jsonc",
			},
		},
	}
}
