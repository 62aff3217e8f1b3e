// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	"github.com/gatehouse-project/gatehouse/lib/codec"
	bootjournal "github.com/gatehouse-project/gatehouse/lib/journal"
	"github.com/gatehouse-project/gatehouse/supervisor"
)

type showParams struct {
	Config cli.ConfigSource
	DB     string
	JSON   bool
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one boot with its phases",
		Description: `Show a single journaled boot: outcome, command, per-phase rows, and
the boot report the supervisor attached before handing off. The boot
is addressed by its ID or any unique prefix of it.`,
		Usage: "gatehousectl journal show <boot-id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			params.Config.AddFlags(flagSet)
			flagSet.StringVar(&params.DB, "db", "",
				"journal database (default: <state-dir>/journal.db from the config)")
			flagSet.BoolVar(&params.JSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Show a boot by ID prefix",
				Command:     "gatehousectl journal show 2f0a1b3c",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one boot ID, got %d arguments", len(args))
			}
			path, err := journalPath(params.DB, &params.Config)
			if err != nil {
				return err
			}
			return runShow(ctx, logger, path, args[0], params.JSON, os.Stdout)
		},
	}
}

// phaseRow is the JSON shape of one journaled phase.
type phaseRow struct {
	Sequence   int       `json:"sequence"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Detail     string    `json:"detail,omitempty"`
}

type showOutput struct {
	Boot   bootRow            `json:"boot"`
	Phases []phaseRow         `json:"phases"`
	Report *supervisor.Report `json:"report,omitempty"`
}

func runShow(ctx context.Context, logger *slog.Logger, path, idPrefix string, asJSON bool, stdout io.Writer) error {
	if err := requireJournal(path); err != nil {
		return err
	}

	db, err := bootjournal.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	boot, err := db.Find(ctx, idPrefix)
	if err != nil {
		return err
	}
	phases, err := db.Phases(ctx, boot.BootID)
	if err != nil {
		return err
	}

	// The attached report is advisory. A boot that crashed mid-write
	// may have none, or a truncated one; neither blocks the show.
	var report *supervisor.Report
	if blob, err := db.Report(ctx, boot.BootID); err == nil && len(blob) > 0 {
		var decoded supervisor.Report
		if err := codec.Unmarshal(blob, &decoded); err != nil {
			logger.Warn("attached report is unreadable", "boot", boot.BootID, "error", err)
		} else {
			report = &decoded
		}
	}

	if asJSON {
		output := showOutput{Boot: newBootRow(*boot), Report: report}
		output.Phases = make([]phaseRow, 0, len(phases))
		for _, phase := range phases {
			output.Phases = append(output.Phases, phaseRow{
				Sequence:   phase.Sequence,
				Name:       phase.Name,
				Status:     phase.Status,
				StartedAt:  phase.StartedAt,
				DurationMS: phase.Duration.Milliseconds(),
				Detail:     phase.Detail,
			})
		}
		return cli.WriteJSON(stdout, output)
	}

	printBoot(stdout, boot, phases, report)
	return nil
}

func printBoot(w io.Writer, boot *bootjournal.Boot, phases []bootjournal.Phase, report *supervisor.Report) {
	fmt.Fprintf(w, "Boot:        %s (%s)\n", boot.BootID, boot.Mode)
	fmt.Fprintf(w, "Outcome:     %s\n", boot.Outcome)
	fmt.Fprintf(w, "Command:     %s\n", strings.Join(boot.Argv, " "))
	fmt.Fprintf(w, "Started:     %s\n", boot.StartedAt.UTC().Format(time.RFC3339))
	if !boot.FinishedAt.IsZero() {
		duration := boot.FinishedAt.Sub(boot.StartedAt).Round(time.Second)
		fmt.Fprintf(w, "Finished:    %s (%s)\n", boot.FinishedAt.UTC().Format(time.RFC3339), duration)
	}
	if boot.Supervisor != "" {
		fmt.Fprintf(w, "Supervisor:  %s\n", boot.Supervisor)
	}
	if report != nil && report.SnapshotID != "" {
		fmt.Fprintf(w, "Snapshot:    %s\n", report.SnapshotID)
	}
	if boot.Error != "" {
		fmt.Fprintf(w, "Exit code:   %d\n", boot.ExitCode)
		fmt.Fprintf(w, "Error:       %s\n", boot.Error)
	}
	if report != nil && report.MigrationExitCode != 0 {
		fmt.Fprintf(w, "Migration:   exited %d\n", report.MigrationExitCode)
	}

	if len(phases) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tSTATUS\tDURATION\tDETAIL")
	for _, phase := range phases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", phase.Name, phase.Status, phase.Duration, phase.Detail)
	}
	tw.Flush()
}
