// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package report implements "gatehousectl report": rendering the boot
// report the supervisor leaves in the state directory.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	"github.com/gatehouse-project/gatehouse/supervisor"
)

// Command returns the "report" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "report",
		Summary: "Inspect the boot report",
		Subcommands: []*cli.Command{
			showCommand(),
		},
	}
}

type showParams struct {
	Config cli.ConfigSource
	Path   string
	JSON   bool
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Decode and print the last boot report",
		Description: `Decode the boot report written before the last managed handoff (or
failure) and print it: outcome, per-phase timings, snapshot reference,
and the error that stopped a failed boot.`,
		Usage: "gatehousectl report show [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.Path, "path", "",
				"report file (default: <state-dir>/boot-report.cbor from the config)")
			flagSet.BoolVar(&params.JSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Show the report from a mounted game volume",
				Command:     "GATEHOUSE_GAME_DIR=/mnt/game gatehousectl report show",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			path := params.Path
			if path == "" {
				cfg, err := params.Config.Load()
				if err != nil {
					return err
				}
				path = cfg.ReportPath()
			}
			return runShow(path, params.JSON, os.Stdout)
		},
	}
}

func runShow(path string, asJSON bool, stdout io.Writer) error {
	report, err := supervisor.ReadReport(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no boot report at %s (no managed boot has run on this volume)", path)
		}
		return err
	}

	if asJSON {
		return cli.WriteJSON(stdout, report)
	}

	printReport(stdout, report)
	return nil
}

func printReport(w io.Writer, report *supervisor.Report) {
	fmt.Fprintf(w, "Boot:        %s (%s)\n", report.BootID, report.Mode)
	fmt.Fprintf(w, "Outcome:     %s\n", report.Outcome)
	fmt.Fprintf(w, "Command:     %s\n", strings.Join(report.Argv, " "))
	fmt.Fprintf(w, "Started:     %s\n", report.StartedAt.UTC().Format(time.RFC3339))
	if !report.FinishedAt.IsZero() {
		duration := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
		fmt.Fprintf(w, "Finished:    %s (%s)\n", report.FinishedAt.UTC().Format(time.RFC3339), duration)
	}

	supervisorLine := report.SupervisorVersion
	if report.SupervisorDigest != "" {
		supervisorLine += " (" + report.SupervisorDigest + ")"
	}
	fmt.Fprintf(w, "Supervisor:  %s\n", supervisorLine)

	if report.SnapshotID != "" {
		fmt.Fprintf(w, "Snapshot:    %s\n", report.SnapshotID)
	}
	if report.Error != "" {
		fmt.Fprintf(w, "Exit code:   %d\n", report.ExitCode)
		fmt.Fprintf(w, "Error:       %s\n", report.Error)
	}
	if report.MigrationExitCode != 0 {
		fmt.Fprintf(w, "Migration:   exited %d\n", report.MigrationExitCode)
	}

	if len(report.Phases) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tSTATUS\tDURATION\tDETAIL")
	for _, phase := range report.Phases {
		duration := time.Duration(phase.DurationMS) * time.Millisecond
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", phase.Name, phase.Status, duration, phase.Detail)
	}
	tw.Flush()
}
