// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gatehouse-project/gatehouse/lib/backup"
)

// takeSnapshot copies the game database into the snapshot store before
// the migration touches it. A missing database is a valid first-boot
// state and skips the phase; any other failure is fatal, because a
// migration must never run against a database that was promised a
// backup it did not get.
//
// Retention pruning runs after a successful snapshot and is soft: a
// full disk should fail the snapshot write, not the cleanup of old
// ones.
func (s *Supervisor) takeSnapshot(ctx context.Context) phaseOutcome {
	_ = ctx // the copy is local and fast; signals are handled between phases

	if s.Config.Snapshot.Disable {
		return phaseOutcome{status: statusSkipped, detail: "disabled by configuration"}
	}
	if s.Config.Migration.Skip {
		// The snapshot exists to protect against the migration. No
		// migration, nothing to protect against.
		return phaseOutcome{status: statusSkipped, detail: "migration disabled"}
	}

	store, err := backup.NewStore(s.Config.SnapshotDir())
	if err != nil {
		return phaseOutcome{status: statusFailed, err: &SnapshotError{Err: err}}
	}

	manifest, err := store.Snapshot(s.Config.Snapshot.Database, s.report.BootID, "gatehouse")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return phaseOutcome{status: statusSkipped, detail: "no database yet"}
		}
		return phaseOutcome{status: statusFailed, err: &SnapshotError{Err: err}}
	}
	s.report.SnapshotID = manifest.ID

	if pruned, err := store.Prune(s.Config.Snapshot.Keep); err != nil {
		s.Logger.Warn("snapshot pruning failed", "error", err)
	} else if len(pruned) > 0 {
		s.Logger.Info("pruned old snapshots", "count", len(pruned), "keep", s.Config.Snapshot.Keep)
	}

	return phaseOutcome{
		status: statusOK,
		detail: fmt.Sprintf("%s (%s, %d bytes)", manifest.ID, manifest.Compression, manifest.BlobSize),
	}
}
