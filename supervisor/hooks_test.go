// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gatehouse-project/gatehouse/lib/hookdef"
	"github.com/gatehouse-project/gatehouse/lib/process"
)

// hookTestSupervisor returns a supervisor ready to run hooks, plus a
// journal-less recorder capturing phase rows in the report.
func hookTestSupervisor(t *testing.T) (*Supervisor, *phaseRecorder) {
	t.Helper()
	s := newTestSupervisor(t)
	s.identity = currentTestIdentity(t)
	s.report = newReport("test-boot", ModeManaged, []string{"evennia", "start"})
	recorder := &phaseRecorder{
		supervisor: s,
		bootID:     "test-boot",
		report:     s.report,
	}
	return s, recorder
}

// phaseRow returns the recorded phase with the given name.
func phaseRow(t *testing.T, report *Report, name string) PhaseReport {
	t.Helper()
	for _, phase := range report.Phases {
		if phase.Name == name {
			return phase
		}
	}
	t.Fatalf("no %q row in %+v", name, report.Phases)
	return PhaseReport{}
}

func TestRunHookSuccess(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "touch-witness", Run: "touch hook-ran"},
	}}

	if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
		t.Fatalf("runHooks: %v", err)
	}

	// The hook runs in the game directory.
	if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "hook-ran")); err != nil {
		t.Errorf("hook did not run in the game directory: %v", err)
	}
	row := phaseRow(t, s.report, "hook:touch-witness")
	if row.Status != statusOK {
		t.Errorf("row status = %q, want %q", row.Status, statusOK)
	}
}

func TestRunHookGuard(t *testing.T) {
	t.Parallel()

	t.Run("guard fails, hook skipped", func(t *testing.T) {
		t.Parallel()
		s, recorder := hookTestSupervisor(t)
		s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
			{Name: "guarded", When: "false", Run: "touch should-not-exist"},
		}}

		if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
			t.Fatalf("runHooks: %v", err)
		}
		if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "should-not-exist")); !errors.Is(err, os.ErrNotExist) {
			t.Error("guarded hook ran despite a failing guard")
		}
		row := phaseRow(t, s.report, "hook:guarded")
		if row.Status != statusSkipped || row.Detail != "guard condition not met" {
			t.Errorf("row = %+v", row)
		}
	})

	t.Run("guard passes, hook runs", func(t *testing.T) {
		t.Parallel()
		s, recorder := hookTestSupervisor(t)
		s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
			{Name: "guarded", When: "true", Run: "touch did-run"},
		}}

		if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
			t.Fatalf("runHooks: %v", err)
		}
		if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "did-run")); err != nil {
			t.Errorf("guarded hook did not run: %v", err)
		}
	})
}

func TestRunHookFailure(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "breaks", Run: "exit 7"},
		{Name: "never-reached", Run: "touch too-far"},
	}}

	err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder)
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("error = %v, want a HookError", err)
	}
	if hookErr.Hook != "breaks" {
		t.Errorf("failing hook = %q", hookErr.Hook)
	}
	var coder process.Coder
	if !errors.As(err, &coder) || coder.ExitCode() != 7 {
		t.Errorf("exit code = %v, want 7", err)
	}

	if _, statErr := os.Stat(filepath.Join(s.Config.Paths.Game, "too-far")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("hooks continued past a fatal failure")
	}
	row := phaseRow(t, s.report, "hook:breaks")
	if row.Status != statusFailed || row.Detail != "exit code 7" {
		t.Errorf("row = %+v", row)
	}
}

func TestRunHookOptionalFailure(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "best-effort", Run: "exit 5", Optional: true},
		{Name: "after", Run: "touch continued"},
	}}

	if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
		t.Fatalf("runHooks: %v", err)
	}
	row := phaseRow(t, s.report, "hook:best-effort")
	if row.Status != statusSoftFailed {
		t.Errorf("row status = %q, want %q", row.Status, statusSoftFailed)
	}
	if !strings.Contains(row.Detail, "optional") {
		t.Errorf("row detail = %q", row.Detail)
	}
	if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "continued")); err != nil {
		t.Errorf("boot did not continue past an optional failure: %v", err)
	}
}

func TestRunHooksPhaseSelection(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "defaulted", Run: "touch pre-default"},
		{Name: "explicit-pre", Phase: hookdef.PhasePreMigration, Run: "touch pre-explicit"},
		{Name: "post", Phase: hookdef.PhasePostMigration, Run: "touch post"},
	}}

	if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
		t.Fatalf("runHooks(pre): %v", err)
	}
	for _, witness := range []string{"pre-default", "pre-explicit"} {
		if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, witness)); err != nil {
			t.Errorf("pre-migration hook %s did not run: %v", witness, err)
		}
	}
	if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "post")); !errors.Is(err, os.ErrNotExist) {
		t.Error("post-migration hook ran in the pre-migration phase")
	}

	if err := s.runHooks(context.Background(), hookdef.PhasePostMigration, recorder); err != nil {
		t.Fatalf("runHooks(post): %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Config.Paths.Game, "post")); err != nil {
		t.Errorf("post-migration hook did not run: %v", err)
	}
}

func TestRunHookEnvironment(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{
			Name: "env-witness",
			Run:  `printf '%s' "$DJANGO_SETTINGS_MODULE" > env-value`,
			Env:  map[string]string{"DJANGO_SETTINGS_MODULE": "server.conf.settings"},
		},
	}}

	if err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder); err != nil {
		t.Fatalf("runHooks: %v", err)
	}
	value, err := os.ReadFile(filepath.Join(s.Config.Paths.Game, "env-value"))
	if err != nil {
		t.Fatalf("reading witness: %v", err)
	}
	if string(value) != "server.conf.settings" {
		t.Errorf("hook env = %q", value)
	}
}

func TestRunHookInvalidTimeout(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "bad-timeout", Run: "true", Timeout: "soon"},
	}}

	err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder)
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("error = %v, want a HookError", err)
	}
	row := phaseRow(t, s.report, "hook:bad-timeout")
	if row.Status != statusFailed || !strings.Contains(row.Detail, "invalid timeout") {
		t.Errorf("row = %+v", row)
	}
}

func TestRunHookTimeout(t *testing.T) {
	t.Parallel()

	s, recorder := hookTestSupervisor(t)
	s.manifest = &hookdef.Manifest{Hooks: []hookdef.Hook{
		{Name: "overruns", Run: "sleep 30", Timeout: "100ms", GracePeriod: "1ms"},
	}}

	err := s.runHooks(context.Background(), hookdef.PhasePreMigration, recorder)
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("error = %v, want a HookError", err)
	}
	if hookErr.Hook != "overruns" {
		t.Errorf("failing hook = %q", hookErr.Hook)
	}
	if hookErr.Err == nil {
		t.Error("timeout did not carry the cancellation error")
	}
	row := phaseRow(t, s.report, "hook:overruns")
	if row.Status != statusFailed {
		t.Errorf("row status = %q", row.Status)
	}
}
