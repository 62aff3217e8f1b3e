// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	bootjournal "github.com/gatehouse-project/gatehouse/lib/journal"
)

type listParams struct {
	Config cli.ConfigSource
	DB     string
	Limit  int
	JSON   bool
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List recorded boots, newest first",
		Description: `List the boots recorded in the journal, newest first. A boot whose
outcome is still "running" either is in progress or crashed before
the supervisor could record how it ended.`,
		Usage: "gatehousectl journal list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.DB, "db", "",
				"journal database (default: <state-dir>/journal.db from the config)")
			flagSet.IntVar(&params.Limit, "limit", 20, "maximum boots to show (0 for all)")
			flagSet.BoolVar(&params.JSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Last five boots of a mounted game volume",
				Command:     "GATEHOUSE_GAME_DIR=/mnt/game gatehousectl journal list --limit 5",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			path, err := journalPath(params.DB, &params.Config)
			if err != nil {
				return err
			}
			return runList(ctx, logger, path, params.Limit, params.JSON, os.Stdout)
		},
	}
}

func runList(ctx context.Context, logger *slog.Logger, path string, limit int, asJSON bool, stdout io.Writer) error {
	if err := requireJournal(path); err != nil {
		return err
	}

	db, err := bootjournal.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	boots, err := db.List(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		rows := make([]bootRow, 0, len(boots))
		for _, boot := range boots {
			rows = append(rows, newBootRow(boot))
		}
		return cli.WriteJSON(stdout, rows)
	}

	if len(boots) == 0 {
		fmt.Fprintln(stdout, "journal is empty")
		return nil
	}

	writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "BOOT\tSTARTED\tOUTCOME\tEXIT\tCOMMAND")
	for _, boot := range boots {
		exit := "-"
		if boot.Outcome == bootjournal.OutcomeFailed {
			exit = strconv.Itoa(boot.ExitCode)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			shortID(boot.BootID),
			boot.StartedAt.UTC().Format(time.RFC3339),
			boot.Outcome,
			exit,
			strings.Join(boot.Argv, " "))
	}
	return writer.Flush()
}
