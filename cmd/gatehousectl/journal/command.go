// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal implements "gatehousectl journal": querying the
// boot history the supervisor records in SQLite on the game volume.
package journal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	bootjournal "github.com/gatehouse-project/gatehouse/lib/journal"
)

// Command returns the "journal" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "journal",
		Summary: "Query the boot journal",
		Subcommands: []*cli.Command{
			listCommand(),
			showCommand(),
		},
	}
}

// bootRow is the JSON shape of one journaled boot.
type bootRow struct {
	BootID     string    `json:"boot_id"`
	Mode       string    `json:"mode"`
	Target     string    `json:"target"`
	Argv       []string  `json:"argv"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	Supervisor string    `json:"supervisor,omitempty"`
}

func newBootRow(boot bootjournal.Boot) bootRow {
	return bootRow{
		BootID:     boot.BootID,
		Mode:       boot.Mode,
		Target:     boot.Target,
		Argv:       boot.Argv,
		StartedAt:  boot.StartedAt,
		FinishedAt: boot.FinishedAt,
		Outcome:    boot.Outcome,
		ExitCode:   boot.ExitCode,
		Error:      boot.Error,
		Supervisor: boot.Supervisor,
	}
}

// journalPath resolves the database path from --db or the config.
func journalPath(override string, source *cli.ConfigSource) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := source.Load()
	if err != nil {
		return "", err
	}
	return cfg.JournalPath(), nil
}

// requireJournal rejects a missing database up front. Open would
// create an empty one, and a read command that plants files on the
// volume would confuse every later boot's diagnostics.
func requireJournal(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no journal at %s (no managed boot has run on this volume)", path)
		}
		return fmt.Errorf("checking journal: %w", err)
	}
	return nil
}

// shortID returns the leading segment of a boot UUID, enough to be
// unique in any realistic journal and short enough for a table.
func shortID(bootID string) string {
	if len(bootID) > 8 {
		return bootID[:8]
	}
	return bootID
}
