// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal persists the boot history of a container in SQLite.
// Every supervisor run inserts one boot row at start and finishes it
// either just before the exec handoff or when the boot fails; phase
// rows record the individual steps (preflight, ownership, hooks,
// snapshot, migration) with status and duration. The operator CLI
// reads the journal to answer "what happened on the last five boots"
// without access to container logs.
//
// The journal is advisory: the supervisor treats journal write
// failures as soft errors. A boot must never fail because its history
// could not be recorded.
//
// Write path: the supervisor is the only writer, strictly sequential.
// Read path: the CLI queries while the game runs; WAL mode keeps
// readers and the writer out of each other's way. A boot whose
// process crashed before recording an outcome stays "running" forever,
// which is itself the post-mortem signal.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/gatehouse-project/gatehouse/lib/sqlitepool"
)

// Boot outcomes.
const (
	// OutcomeRunning is the initial state. It persists forever if
	// the supervisor crashes before recording a final outcome.
	OutcomeRunning = "running"

	// OutcomeHandoff means the boot reached the exec handoff. It is
	// recorded immediately before exec, so it means "the supervisor
	// finished", not "the game stayed up".
	OutcomeHandoff = "handoff"

	// OutcomeFailed means the boot aborted before the handoff.
	OutcomeFailed = "failed"
)

// Phase statuses.
const (
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusSoftFailed = "soft-failed" // failed, but the boot continued
	StatusSkipped    = "skipped"     // when-guard or precondition not met
)

// Boot is one supervisor run.
type Boot struct {
	BootID     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running or after a crash
	Mode       string    // boot mode; only managed boots are journaled
	Target     string    // resolved program path
	Argv       []string
	Outcome    string
	ExitCode   int // meaningful when Outcome is OutcomeFailed
	Error      string
	Supervisor string // tool build identity
}

// Phase is one recorded step of a boot.
type Phase struct {
	Sequence  int
	Name      string // e.g. "preflight", "hook:collect-static", "migration"
	Status    string
	StartedAt time.Time
	Duration  time.Duration
	Detail    string
}

const schema = `
	CREATE TABLE IF NOT EXISTS boots (
		boot_id     TEXT PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL DEFAULT 0,
		mode        TEXT NOT NULL,
		target      TEXT NOT NULL,
		argv        TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		exit_code   INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		supervisor  TEXT NOT NULL DEFAULT '',
		report      BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_boots_started ON boots(started_at);

	CREATE TABLE IF NOT EXISTS phases (
		boot_id     TEXT NOT NULL,
		sequence    INTEGER NOT NULL,
		name        TEXT NOT NULL,
		status      TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		detail      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (boot_id, sequence)
	);
`

// Journal is a handle to the boot journal database.
type Journal struct {
	pool *sqlitepool.Pool
}

// Open opens (creating if needed) the journal database. The parent
// directory is created 0700 — journal rows carry argv and error
// strings that may reference paths an unprivileged user has no
// business reading.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("journal: creating directory: %w", err)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: 2,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	return &Journal{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (j *Journal) Close() error {
	return j.pool.Close()
}

// Begin inserts a new boot row with outcome "running". StartedAt
// defaults to now when zero.
func (j *Journal) Begin(ctx context.Context, boot Boot) error {
	if boot.BootID == "" {
		return fmt.Errorf("journal: boot ID is required")
	}
	if boot.Mode == "" {
		return fmt.Errorf("journal: mode is required")
	}
	startedAt := boot.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	argv, err := json.Marshal(boot.Argv)
	if err != nil {
		return fmt.Errorf("journal: marshal argv: %w", err)
	}

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO boots
		(boot_id, started_at, mode, target, argv, outcome, supervisor)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			boot.BootID,
			startedAt.UTC().Unix(),
			boot.Mode,
			boot.Target,
			string(argv),
			OutcomeRunning,
			boot.Supervisor,
		},
	})
	if err != nil {
		return fmt.Errorf("journal: begin boot %s: %w", boot.BootID, err)
	}
	return nil
}

// Finish records the final outcome of a boot. For OutcomeHandoff this
// runs immediately before exec; for OutcomeFailed, exitCode and
// message describe the failure.
func (j *Journal) Finish(ctx context.Context, bootID, outcome string, exitCode int, message string) error {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE boots
		SET finished_at = ?, outcome = ?, exit_code = ?, error = ?
		WHERE boot_id = ?`, &sqlitex.ExecOptions{
		Args: []any{time.Now().UTC().Unix(), outcome, exitCode, message, bootID},
	})
	if err != nil {
		return fmt.Errorf("journal: finish boot %s: %w", bootID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("journal: finish: unknown boot %s", bootID)
	}
	return nil
}

// RecordPhase appends a phase row to a boot. The sequence number is
// assigned by the insert itself, so callers just report phases in the
// order they ran.
func (j *Journal) RecordPhase(ctx context.Context, bootID string, phase Phase) error {
	if phase.Name == "" {
		return fmt.Errorf("journal: phase name is required")
	}
	startedAt := phase.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO phases
		(boot_id, sequence, name, status, started_at, duration_ms, detail)
		VALUES (?,
			(SELECT COALESCE(MAX(sequence), 0) + 1 FROM phases WHERE boot_id = ?),
			?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			bootID,
			bootID,
			phase.Name,
			phase.Status,
			startedAt.UTC().Unix(),
			phase.Duration.Milliseconds(),
			phase.Detail,
		},
	})
	if err != nil {
		return fmt.Errorf("journal: record phase %s for boot %s: %w", phase.Name, bootID, err)
	}
	return nil
}

// AttachReport stores the CBOR boot report blob on an existing boot
// row.
func (j *Journal) AttachReport(ctx context.Context, bootID string, report []byte) error {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE boots SET report = ? WHERE boot_id = ?`,
		&sqlitex.ExecOptions{Args: []any{report, bootID}})
	if err != nil {
		return fmt.Errorf("journal: attach report to boot %s: %w", bootID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("journal: attach report: unknown boot %s", bootID)
	}
	return nil
}

// List returns boots newest first. limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, limit int) ([]Boot, error) {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer j.pool.Put(conn)

	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}

	var boots []Boot
	var scanErr error
	err = sqlitex.Execute(conn, `SELECT boot_id, started_at, finished_at,
		mode, target, argv, outcome, exit_code, error, supervisor
		FROM boots ORDER BY started_at DESC, boot_id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				boot, err := scanBoot(stmt)
				if err != nil {
					scanErr = err
					return err
				}
				boots = append(boots, boot)
				return nil
			},
		})
	if err != nil {
		if scanErr != nil {
			return nil, fmt.Errorf("journal: list: %w", scanErr)
		}
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return boots, nil
}

// Find resolves a boot by ID or unique ID prefix, so operators can
// type the first hex segment of a boot UUID instead of the whole
// thing. Ambiguous prefixes are an error.
func (j *Journal) Find(ctx context.Context, idPrefix string) (*Boot, error) {
	if idPrefix == "" {
		return nil, fmt.Errorf("journal: boot ID prefix is required")
	}

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer j.pool.Put(conn)

	var matches []Boot
	var scanErr error
	err = sqlitex.Execute(conn, `SELECT boot_id, started_at, finished_at,
		mode, target, argv, outcome, exit_code, error, supervisor
		FROM boots WHERE substr(boot_id, 1, length(?)) = ?
		ORDER BY started_at DESC LIMIT 2`,
		&sqlitex.ExecOptions{
			Args: []any{idPrefix, idPrefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				boot, err := scanBoot(stmt)
				if err != nil {
					scanErr = err
					return err
				}
				matches = append(matches, boot)
				return nil
			},
		})
	if err != nil {
		if scanErr != nil {
			return nil, fmt.Errorf("journal: find %s: %w", idPrefix, scanErr)
		}
		return nil, fmt.Errorf("journal: find %s: %w", idPrefix, err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("journal: no boot matches %q", idPrefix)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("journal: boot ID prefix %q is ambiguous", idPrefix)
	}
}

// Phases returns the recorded phases of a boot in execution order.
func (j *Journal) Phases(ctx context.Context, bootID string) ([]Phase, error) {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer j.pool.Put(conn)

	var phases []Phase
	err = sqlitex.Execute(conn, `SELECT sequence, name, status, started_at,
		duration_ms, detail FROM phases WHERE boot_id = ? ORDER BY sequence`,
		&sqlitex.ExecOptions{
			Args: []any{bootID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				phases = append(phases, Phase{
					Sequence:  stmt.ColumnInt(0),
					Name:      stmt.ColumnText(1),
					Status:    stmt.ColumnText(2),
					StartedAt: time.Unix(stmt.ColumnInt64(3), 0).UTC(),
					Duration:  time.Duration(stmt.ColumnInt64(4)) * time.Millisecond,
					Detail:    stmt.ColumnText(5),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("journal: phases for boot %s: %w", bootID, err)
	}
	return phases, nil
}

// Report returns the CBOR boot report blob for a boot, or nil if the
// boot recorded no report.
func (j *Journal) Report(ctx context.Context, bootID string) ([]byte, error) {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer j.pool.Put(conn)

	var report []byte
	var found bool
	err = sqlitex.Execute(conn, `SELECT report FROM boots WHERE boot_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{bootID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				if stmt.ColumnLen(0) > 0 {
					report = make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, report)
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("journal: report for boot %s: %w", bootID, err)
	}
	if !found {
		return nil, fmt.Errorf("journal: unknown boot %s", bootID)
	}
	return report, nil
}

// scanBoot builds a Boot from a SELECT row. Column order must match
// the queries in List and Find.
func scanBoot(stmt *sqlite.Stmt) (Boot, error) {
	boot := Boot{
		BootID:     stmt.ColumnText(0),
		StartedAt:  time.Unix(stmt.ColumnInt64(1), 0).UTC(),
		Mode:       stmt.ColumnText(3),
		Target:     stmt.ColumnText(4),
		Outcome:    stmt.ColumnText(6),
		ExitCode:   stmt.ColumnInt(7),
		Error:      stmt.ColumnText(8),
		Supervisor: stmt.ColumnText(9),
	}
	if finishedAt := stmt.ColumnInt64(2); finishedAt != 0 {
		boot.FinishedAt = time.Unix(finishedAt, 0).UTC()
	}
	if argv := stmt.ColumnText(5); argv != "" {
		if err := json.Unmarshal([]byte(argv), &boot.Argv); err != nil {
			return Boot{}, fmt.Errorf("boot %s: decoding argv: %w", boot.BootID, err)
		}
	}
	return boot, nil
}
