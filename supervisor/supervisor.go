// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor implements the container boot sequence: preflight
// validation, diagnostics, ownership preparation, secret
// materialization, boot hooks, database snapshot, schema migration,
// and the final process image handoff to the game server.
//
// The sequence is strictly ordered and fail-fast. Every phase returns
// a typed error carrying the exit code the container should die with,
// so orchestrators see the true failure (a migration tool's exit 3)
// instead of a generic 1. The supervisor itself never exits 0: a
// successful boot ends in exec, and from then on the exit code belongs
// to the game.
//
// Invocations whose first argument is not the configured selector take
// the pass-through path: the command is exec'd as the invoking
// identity with no side effects at all. This keeps "docker run image
// bash" working even when the managed configuration is broken.
package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-project/gatehouse/lib/bootmark"
	"github.com/gatehouse-project/gatehouse/lib/codec"
	"github.com/gatehouse-project/gatehouse/lib/config"
	"github.com/gatehouse-project/gatehouse/lib/hookdef"
	"github.com/gatehouse-project/gatehouse/lib/journal"
	"github.com/gatehouse-project/gatehouse/lib/process"
	"github.com/gatehouse-project/gatehouse/lib/version"
)

// Boot modes.
const (
	ModeManaged     = "managed"
	ModePassThrough = "pass-through"
)

// Supervisor runs the boot sequence. Construct with New, then call Run
// exactly once; a Supervisor is single-use, like the boot it performs.
type Supervisor struct {
	Config *config.Config
	Logger *slog.Logger

	// Out receives human-readable boot output: diagnostics and
	// preflight results. Defaults to stderr, keeping stdout clean for
	// the managed process.
	Out io.Writer

	// ExecFunc is the function called to replace the process image.
	// Nil means use syscall.Exec. Injectable for testing — the test
	// can capture the arguments without actually exec'ing.
	ExecFunc func(argv0 string, argv []string, envv []string) error

	// ConfigError is a deferred configuration load failure. Fatal on
	// the managed path, logged and ignored on pass-through.
	ConfigError error

	// Set during the managed sequence.
	identity *Identity
	manifest *hookdef.Manifest
	signals  *signalWatcher
	report   *Report
}

// New returns a Supervisor for the configuration.
func New(cfg *config.Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		Config: cfg,
		Logger: logger,
		Out:    os.Stderr,
	}
}

// Run executes the boot for the given argument vector (the container's
// command, without the supervisor's own path). On success it does not
// return: the process image has been replaced. Every returned error
// carries an exit code for process.Exit.
func (s *Supervisor) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return &UsageError{Message: "a command is required"}
	}

	runDiagnostics(s.Config, s.Out)

	if argv[0] != s.Config.Selector {
		return s.passThrough(argv)
	}
	return s.managed(ctx, argv)
}

// passThrough execs the command as the invoking identity with no side
// effects. An operator's debug shell must work no matter how broken
// the managed configuration is.
func (s *Supervisor) passThrough(argv []string) error {
	if s.ConfigError != nil {
		s.Logger.Warn("configuration is broken; pass-through continues regardless", "error", s.ConfigError)
	}
	s.Logger.Info("pass-through", "command", argv[0])
	return s.handoff(handoffSpec{
		target: argv[0],
		argv:   argv,
		mode:   ModePassThrough,
	})
}

// managed runs the full boot sequence and hands off to the game.
func (s *Supervisor) managed(ctx context.Context, argv []string) error {
	if s.ConfigError != nil {
		return &PreflightError{Err: s.ConfigError}
	}

	ctx, watcher := watchSignals(ctx)
	defer watcher.stop()
	s.signals = watcher

	validator, identity, manifest := Preflight(s.Config)
	validator.PrintResults(s.Out)
	if validator.HasErrors() {
		return &PreflightError{Err: validator.Err()}
	}
	s.identity = identity
	s.manifest = manifest

	bootID := uuid.NewString()
	s.report = newReport(bootID, ModeManaged, argv)
	s.Logger.Info("boot starting",
		"boot_id", bootID,
		"target", argv[0],
		"identity", identity.String(),
		"version", version.Short(),
	)

	// A marker on a persistent volume describes a previous container
	// run, not this one.
	if err := bootmark.Clear(s.Config.MarkerPath()); err != nil {
		s.Logger.Warn("clearing stale boot marker", "error", err)
	}

	// The journal is advisory. A container that cannot open it still
	// boots; it just boots without history.
	journalHandle, err := journal.Open(s.Config.JournalPath(), s.Logger)
	if err != nil {
		s.Logger.Warn("boot journal unavailable", "error", err)
		journalHandle = nil
	} else {
		defer journalHandle.Close()
		err := journalHandle.Begin(ctx, journal.Boot{
			BootID:     bootID,
			StartedAt:  s.report.StartedAt,
			Mode:       ModeManaged,
			Target:     argv[0],
			Argv:       argv,
			Supervisor: version.Short(),
		})
		if err != nil {
			s.Logger.Warn("journal boot row failed", "error", err)
		}
	}

	recorder := &phaseRecorder{
		supervisor: s,
		journal:    journalHandle,
		bootID:     bootID,
		report:     s.report,
	}

	runErr := s.sequence(ctx, recorder)
	s.finalize(ctx, journalHandle, runErr)
	if runErr != nil {
		return runErr
	}

	execErr := s.handoff(handoffSpec{
		target:     argv[0],
		argv:       argv,
		identity:   identity,
		markerPath: s.Config.MarkerPath(),
		bootID:     bootID,
		mode:       ModeManaged,
	})
	if execErr == nil {
		return nil
	}

	// Exec failed; the finalize above already recorded a handoff
	// outcome that did not happen. Amend the journal.
	if journalHandle != nil {
		finishErr := journalHandle.Finish(
			context.WithoutCancel(ctx), bootID,
			journal.OutcomeFailed, exitCodeFor(execErr), execErr.Error(),
		)
		if finishErr != nil {
			s.Logger.Warn("journal amend after exec failure", "error", finishErr)
		}
	}
	return execErr
}

// sequence runs the mutating phases in their fixed order, stopping at
// the first fatal result.
func (s *Supervisor) sequence(ctx context.Context, recorder *phaseRecorder) error {
	if err := s.phase(ctx, recorder, "ownership", s.prepareOwnership); err != nil {
		return err
	}
	if err := s.phase(ctx, recorder, "secret", s.materializeSecret); err != nil {
		return err
	}
	if err := s.runHooks(ctx, hookdef.PhasePreMigration, recorder); err != nil {
		return err
	}
	if err := s.phase(ctx, recorder, "snapshot", s.takeSnapshot); err != nil {
		return err
	}
	if err := s.phase(ctx, recorder, "migration", s.runMigration); err != nil {
		return err
	}
	return s.runHooks(ctx, hookdef.PhasePostMigration, recorder)
}

// phase runs one sequence phase: abort check, execution, recording.
// A signal that arrived during the phase outranks whatever error the
// resulting kill produced.
func (s *Supervisor) phase(ctx context.Context, recorder *phaseRecorder, name string, run func(context.Context) phaseOutcome) error {
	if err := s.aborted(ctx); err != nil {
		return err
	}

	start := time.Now()
	outcome := run(ctx)

	detail := outcome.detail
	if outcome.err != nil && detail == "" {
		detail = outcome.err.Error()
	}
	recorder.record(ctx, name, outcome.status, start, detail)

	if outcome.err != nil {
		if abortErr := s.aborted(ctx); abortErr != nil {
			return abortErr
		}
		return outcome.err
	}
	return nil
}

// finalize completes the report and writes it everywhere it goes:
// report file, journal, metrics. All best-effort; by this point the
// boot's fate is already decided and observability must not change it.
func (s *Supervisor) finalize(ctx context.Context, journalHandle *journal.Journal, runErr error) {
	// The boot may have been aborted by a signal; these writes are
	// local and fast and should finish regardless.
	ctx = context.WithoutCancel(ctx)

	report := s.report
	report.FinishedAt = time.Now().UTC()
	if runErr != nil {
		report.Outcome = journal.OutcomeFailed
		report.ExitCode = exitCodeFor(runErr)
		report.Error = runErr.Error()
	} else {
		report.Outcome = journal.OutcomeHandoff
	}

	var migrationError *MigrationError
	if errors.As(runErr, &migrationError) {
		report.MigrationExitCode = migrationError.ExitCode()
	}

	if err := WriteReport(s.Config.ReportPath(), report); err != nil {
		s.Logger.Warn("boot report write failed", "error", err)
	}

	if journalHandle != nil {
		if data, err := codec.Marshal(report); err != nil {
			s.Logger.Warn("boot report encode for journal failed", "error", err)
		} else if err := journalHandle.AttachReport(ctx, report.BootID, data); err != nil {
			s.Logger.Warn("journal report attach failed", "error", err)
		}

		message := ""
		if runErr != nil {
			message = runErr.Error()
		}
		if err := journalHandle.Finish(ctx, report.BootID, report.Outcome, report.ExitCode, message); err != nil {
			s.Logger.Warn("journal finish failed", "error", err)
		}
	}

	if s.Config.MetricsDir != "" {
		if err := writeMetrics(s.Config.MetricsDir, report); err != nil {
			s.Logger.Warn("metrics write failed", "directory", s.Config.MetricsDir, "error", err)
		}
	}
}

// aborted translates context cancellation into the exit-code-bearing
// SignalError when a signal caused it.
func (s *Supervisor) aborted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if s.signals != nil {
		if sig := s.signals.signal(); sig != 0 {
			return &SignalError{Signal: sig}
		}
	}
	return ctx.Err()
}

// exitCodeFor derives the process exit code from an error, mirroring
// what process.Exit will do with it.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var coder process.Coder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitFatal
}

// signalWatcher cancels the boot context when SIGINT or SIGTERM
// arrives and remembers which signal it was, so the supervisor can die
// with the conventional 128+n.
type signalWatcher struct {
	mu         sync.Mutex
	sig        syscall.Signal
	stopNotify func()
}

// watchSignals installs the watcher over the parent context.
func watchSignals(parent context.Context) (context.Context, *signalWatcher) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	watcher := &signalWatcher{}
	watcher.stopNotify = func() {
		signal.Stop(signals)
		cancel()
	}

	go func() {
		select {
		case received := <-signals:
			if sig, ok := received.(syscall.Signal); ok {
				watcher.mu.Lock()
				watcher.sig = sig
				watcher.mu.Unlock()
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, watcher
}

// signal returns the received signal, or zero when none arrived.
func (w *signalWatcher) signal() syscall.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sig
}

// stop releases the signal registration and cancels the watched
// context.
func (w *signalWatcher) stop() {
	w.stopNotify()
}
