// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package backup implements "gatehousectl backup": listing, pruning,
// verifying, and restoring the pre-migration database snapshots the
// supervisor leaves in the state directory.
package backup

import (
	"errors"
	"fmt"
	"os"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	snapstore "github.com/gatehouse-project/gatehouse/lib/backup"
)

// Command returns the "backup" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "backup",
		Summary: "Manage database snapshots",
		Subcommands: []*cli.Command{
			listCommand(),
			pruneCommand(),
			verifyCommand(),
			restoreCommand(),
		},
	}
}

// storeDir resolves the snapshot directory from --dir or the config.
func storeDir(override string, source *cli.ConfigSource) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := source.Load()
	if err != nil {
		return "", err
	}
	return cfg.SnapshotDir(), nil
}

// openStore opens an existing snapshot store. NewStore would create
// the directory, and a read command that plants directories on the
// volume would make "has this container ever snapshotted" impossible
// to answer by looking.
func openStore(dir string) (*snapstore.Store, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no snapshot store at %s (no snapshots have been taken on this volume)", dir)
		}
		return nil, fmt.Errorf("checking snapshot store: %w", err)
	}
	return snapstore.NewStore(dir)
}

// formatSize renders a byte count for table output.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
