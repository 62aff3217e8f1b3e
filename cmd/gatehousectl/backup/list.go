// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
)

type listParams struct {
	Config cli.ConfigSource
	Dir    string
	JSON   bool
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List snapshots, newest first",
		Usage:   "gatehousectl backup list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.Dir, "dir", "",
				"snapshot directory (default: <state-dir>/snapshots from the config)")
			flagSet.BoolVar(&params.JSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "List snapshots on a mounted game volume",
				Command:     "GATEHOUSE_GAME_DIR=/mnt/game gatehousectl backup list",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			dir, err := storeDir(params.Dir, &params.Config)
			if err != nil {
				return err
			}
			return runList(logger, dir, params.JSON, os.Stdout)
		},
	}
}

func runList(logger *slog.Logger, dir string, asJSON bool, stdout io.Writer) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}

	manifests, listErr := store.List()
	if listErr != nil {
		// Corrupt manifests are reported but must not hide the
		// readable ones.
		logger.Warn("some snapshot manifests are unreadable", "error", listErr)
	}

	if asJSON {
		return cli.WriteJSON(stdout, manifests)
	}

	if len(manifests) == 0 {
		fmt.Fprintln(stdout, "no snapshots")
		return nil
	}

	writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCREATED\tSIZE\tON DISK\tCOMPRESSION")
	for _, manifest := range manifests {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			manifest.ID,
			manifest.CreatedAt.UTC().Format(time.RFC3339),
			formatSize(manifest.ContentSize),
			formatSize(manifest.BlobSize),
			manifest.Compression)
	}
	return writer.Flush()
}
