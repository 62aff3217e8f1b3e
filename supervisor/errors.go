// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"syscall"
)

// Exit codes with fixed meanings. The supervisor never exits 0 on its
// own: a successful boot replaces the process image, so the exit code
// the container reports belongs to the managed process.
const (
	// ExitFatal covers preflight, ownership, secret, and snapshot
	// failures, plus internal errors with no more specific code.
	ExitFatal = 1

	// ExitUsage is returned for malformed invocations (empty argv).
	ExitUsage = 2

	// ExitNotExecutable means the handoff target exists but could not
	// be executed (permissions, format, failed de-escalation).
	ExitNotExecutable = 126

	// ExitNotFound means the handoff target could not be resolved.
	ExitNotFound = 127

	// ExitSignalBase plus the signal number is returned when a signal
	// aborts the sequence before handoff.
	ExitSignalBase = 128
)

// UsageError is a malformed invocation. The supervisor cannot even
// decide between managed and pass-through mode.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return "usage: " + e.Message }

// ExitCode returns 2.
func (e *UsageError) ExitCode() int { return ExitUsage }

// PreflightError is a failed preflight validation. The boot aborts
// before any mutation.
type PreflightError struct {
	Err error
}

func (e *PreflightError) Error() string { return "preflight: " + e.Err.Error() }
func (e *PreflightError) Unwrap() error { return e.Err }

// ExitCode returns 1.
func (e *PreflightError) ExitCode() int { return ExitFatal }

// OwnershipError is a failed recursive chown of the managed paths.
// No migration is attempted after it.
type OwnershipError struct {
	Err error
}

func (e *OwnershipError) Error() string { return "ownership: " + e.Err.Error() }
func (e *OwnershipError) Unwrap() error { return e.Err }

// ExitCode returns 1.
func (e *OwnershipError) ExitCode() int { return ExitFatal }

// SecretError is a failed secret materialization. A present-but-broken
// secret is fatal: booting the game without its production settings
// would be worse than not booting.
type SecretError struct {
	Err error
}

func (e *SecretError) Error() string { return "secret: " + e.Err.Error() }
func (e *SecretError) Unwrap() error { return e.Err }

// ExitCode returns 1.
func (e *SecretError) ExitCode() int { return ExitFatal }

// SnapshotError is a failed pre-migration database snapshot. Fatal: a
// migration must never run without the backup it was promised.
type SnapshotError struct {
	Err error
}

func (e *SnapshotError) Error() string { return "snapshot: " + e.Err.Error() }
func (e *SnapshotError) Unwrap() error { return e.Err }

// ExitCode returns 1.
func (e *SnapshotError) ExitCode() int { return ExitFatal }

// MigrationError is a migration command that exited non-zero. The
// supervisor propagates the migration tool's own exit code so the
// container reports the true failure, not a generic 1.
type MigrationError struct {
	Code int
	Err  error
}

func (e *MigrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("migration: %v", e.Err)
	}
	return fmt.Sprintf("migration: exit code %d", e.Code)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// ExitCode returns the migration tool's exit code, or 1 when the
// command failed before producing one.
func (e *MigrationError) ExitCode() int {
	if e.Code > 0 {
		return e.Code
	}
	return ExitFatal
}

// HookError is a non-optional boot hook that exited non-zero. The
// hook's exit code becomes the supervisor's.
type HookError struct {
	Hook string
	Code int
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hook %q: %v", e.Hook, e.Err)
	}
	return fmt.Sprintf("hook %q: exit code %d", e.Hook, e.Code)
}

func (e *HookError) Unwrap() error { return e.Err }

// ExitCode returns the hook's exit code, or 1 when the command failed
// before producing one.
func (e *HookError) ExitCode() int {
	if e.Code > 0 {
		return e.Code
	}
	return ExitFatal
}

// ExecError is a failed handoff: the process image was not replaced.
type ExecError struct {
	Target   string
	Err      error
	NotFound bool
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %s: %v", e.Target, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ExitCode returns 127 when the target could not be found, 126
// otherwise.
func (e *ExecError) ExitCode() int {
	if e.NotFound {
		return ExitNotFound
	}
	return ExitNotExecutable
}

// SignalError is a boot sequence aborted by a signal before handoff.
type SignalError struct {
	Signal syscall.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("aborted by signal %s", e.Signal)
}

// ExitCode returns 128 plus the signal number, the shell convention
// for signal deaths.
func (e *SignalError) ExitCode() int {
	return ExitSignalBase + int(e.Signal)
}
