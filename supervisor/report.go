// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/binhash"
	"github.com/gatehouse-project/gatehouse/lib/codec"
	"github.com/gatehouse-project/gatehouse/lib/journal"
	"github.com/gatehouse-project/gatehouse/lib/version"
)

// Phase statuses, shared with the journal so report and journal rows
// for the same boot never disagree on vocabulary.
const (
	statusOK         = journal.StatusOK
	statusFailed     = journal.StatusFailed
	statusSoftFailed = journal.StatusSoftFailed
	statusSkipped    = journal.StatusSkipped
)

// phaseOutcome captures one boot sequence phase. A failed phase
// carries the typed error that decides the supervisor's exit code.
type phaseOutcome struct {
	status string
	detail string
	err    error
}

// Report is the boot report written to the state directory before
// handoff. It is the durable answer to "what did the supervisor do
// last time this container started": encoded as deterministic CBOR,
// attached to the journal row, and rendered by gatehousectl.
type Report struct {
	BootID            string        `json:"boot_id"`
	Mode              string        `json:"mode"`
	Target            string        `json:"target"`
	Argv              []string      `json:"argv"`
	SupervisorVersion string        `json:"supervisor_version"`
	SupervisorDigest  string        `json:"supervisor_digest,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
	Outcome           string        `json:"outcome"`
	ExitCode          int           `json:"exit_code"`
	Error             string        `json:"error,omitempty"`
	MigrationExitCode int           `json:"migration_exit_code"`
	SnapshotID        string        `json:"snapshot_id,omitempty"`
	Phases            []PhaseReport `json:"phases"`
}

// PhaseReport is one sequence phase in the boot report. Hook phases
// are named "hook:<name>".
type PhaseReport struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Detail     string    `json:"detail,omitempty"`
}

// newReport starts a boot report for the attempt. The self binary
// digest is best-effort: /proc may be unreadable in exotic sandboxes
// and the report is still worth having without it.
func newReport(bootID, mode string, argv []string) *Report {
	report := &Report{
		BootID:            bootID,
		Mode:              mode,
		Target:            argv[0],
		Argv:              argv,
		SupervisorVersion: version.Short(),
		StartedAt:         time.Now().UTC(),
		Outcome:           journal.OutcomeRunning,
	}
	if digest, _, err := binhash.HashSelf(); err == nil {
		report.SupervisorDigest = digest
	}
	return report
}

// WriteReport atomically writes the report as deterministic CBOR.
func WriteReport(path string, report *Report) error {
	data, err := codec.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadReport reads and decodes a boot report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := codec.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}

// phaseRecorder fans one phase result out to the report, the journal,
// and the log. Journal failures are soft: the journal is advisory and
// a read-only volume must not fail a boot that is otherwise fine.
type phaseRecorder struct {
	supervisor *Supervisor
	journal    *journal.Journal // nil when the journal could not open
	bootID     string
	report     *Report
}

// record appends the phase everywhere it is tracked.
func (r *phaseRecorder) record(ctx context.Context, name, status string, start time.Time, detail string) {
	duration := time.Since(start)

	r.report.Phases = append(r.report.Phases, PhaseReport{
		Name:       name,
		Status:     status,
		StartedAt:  start.UTC(),
		DurationMS: duration.Milliseconds(),
		Detail:     detail,
	})

	logger := r.supervisor.Logger
	switch status {
	case statusFailed:
		logger.Error("phase failed", "phase", name, "duration", duration, "detail", detail)
	case statusSoftFailed:
		logger.Warn("phase failed (continuing)", "phase", name, "duration", duration, "detail", detail)
	default:
		logger.Info("phase "+status, "phase", name, "duration", duration, "detail", detail)
	}

	if r.journal == nil {
		return
	}
	// The row for a signal-aborted phase is the most interesting one;
	// insulate the write from the cancellation that ended the phase.
	ctx = context.WithoutCancel(ctx)
	err := r.journal.RecordPhase(ctx, r.bootID, journal.Phase{
		Name:      name,
		Status:    status,
		StartedAt: start,
		Duration:  duration,
		Detail:    detail,
	})
	if err != nil {
		logger.Warn("journal phase write failed", "phase", name, "error", err)
	}
}

// writeFileAtomic writes data to path via a temporary file in the same
// directory: write, fsync, rename, parent directory sync. Readers
// never observe a partial file and the result survives power loss.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
