// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// migrationGracePeriod is the SIGTERM-to-SIGKILL gap when a migration
// overruns its timeout. Schema migrations commit transactionally, but
// ten seconds of grace lets the tool finish the statement it is on
// instead of leaving the database mid-transaction for SQLite to roll
// back on the next open.
const migrationGracePeriod = 10 * time.Second

// runMigration applies the schema migration exactly once per boot,
// de-escalated to the target identity, in the game directory. The
// command is opaque to the supervisor: it trusts the tool to be
// idempotent and honors its exit code as the verdict.
func (s *Supervisor) runMigration(ctx context.Context) phaseOutcome {
	if s.Config.Migration.Skip {
		return phaseOutcome{status: statusSkipped, detail: "disabled by configuration"}
	}

	timeout, err := s.Config.MigrationTimeout()
	if err != nil {
		// Preflight validation should have caught this, but fail loud
		// if not.
		return phaseOutcome{status: statusFailed, err: &MigrationError{Err: err}}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	command := s.Config.Migration.Command
	s.Logger.Info("running migration",
		"command", strings.Join(command, " "),
		"identity", s.identity.String(),
		"timeout", timeout,
	)

	exitCode, err := runArgv(ctx, command, stepOptions{
		dir:         s.Config.Paths.Game,
		identity:    s.identity,
		gracePeriod: migrationGracePeriod,
	})
	if err != nil {
		return phaseOutcome{status: statusFailed, err: &MigrationError{Err: err}}
	}
	if exitCode != 0 {
		return phaseOutcome{
			status: statusFailed,
			detail: fmt.Sprintf("exit code %d", exitCode),
			err:    &MigrationError{Code: exitCode},
		}
	}
	return phaseOutcome{status: statusOK, detail: strings.Join(command, " ")}
}
