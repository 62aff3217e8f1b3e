// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/hookdef"
)

// runHooks executes the manifest's hooks for one phase, sequentially
// and in manifest order, each as the target identity in the game
// directory. Each hook gets its own "hook:<name>" row in the report
// and journal.
//
// A when-guard that exits non-zero skips the hook; an optional hook's
// failure is logged and the boot continues; any other failure is fatal
// with the hook's exit code.
func (s *Supervisor) runHooks(ctx context.Context, phase string, recorder *phaseRecorder) error {
	hooks := s.manifest.HooksFor(phase)
	for _, hook := range hooks {
		if err := s.aborted(ctx); err != nil {
			return err
		}
		if err := s.runHook(ctx, hook, recorder); err != nil {
			return err
		}
	}
	return nil
}

// runHook executes a single hook.
func (s *Supervisor) runHook(ctx context.Context, hook hookdef.Hook, recorder *phaseRecorder) error {
	label := "hook:" + hook.Name
	start := time.Now()

	timeout := hookdef.DefaultTimeout
	if hook.Timeout != "" {
		parsed, err := time.ParseDuration(hook.Timeout)
		if err != nil {
			// Preflight validation should have caught this, but fail
			// loud if not.
			recorder.record(ctx, label, statusFailed, start, "invalid timeout "+hook.Timeout)
			return &HookError{Hook: hook.Name, Err: fmt.Errorf("invalid timeout %q: %w", hook.Timeout, err)}
		}
		timeout = parsed
	}

	gracePeriod := hookdef.DefaultGracePeriod
	if hook.GracePeriod != "" {
		parsed, err := time.ParseDuration(hook.GracePeriod)
		if err != nil {
			recorder.record(ctx, label, statusFailed, start, "invalid grace_period "+hook.GracePeriod)
			return &HookError{Hook: hook.Name, Err: fmt.Errorf("invalid grace_period %q: %w", hook.GracePeriod, err)}
		}
		gracePeriod = parsed
	}

	hookContext, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	options := stepOptions{
		dir:         s.Config.Paths.Game,
		env:         hook.Env,
		identity:    s.identity,
		gracePeriod: gracePeriod,
	}

	// Guards are quick probes: immediate SIGKILL on timeout, and a
	// non-zero exit is a skip, not a failure.
	if hook.When != "" {
		guardOptions := options
		guardOptions.gracePeriod = 0
		exitCode, err := runShell(hookContext, hook.When, guardOptions)
		if err != nil {
			if abortErr := s.aborted(ctx); abortErr != nil {
				recorder.record(ctx, label, statusFailed, start, abortErr.Error())
				return abortErr
			}
			recorder.record(ctx, label, statusFailed, start, "when guard: "+err.Error())
			return &HookError{Hook: hook.Name, Err: fmt.Errorf("when guard: %w", err)}
		}
		if exitCode != 0 {
			recorder.record(ctx, label, statusSkipped, start, "guard condition not met")
			return nil
		}
	}

	exitCode, err := runShell(hookContext, hook.Run, options)
	if err != nil {
		if abortErr := s.aborted(ctx); abortErr != nil {
			recorder.record(ctx, label, statusFailed, start, abortErr.Error())
			return abortErr
		}
		recorder.record(ctx, label, statusFailed, start, err.Error())
		return &HookError{Hook: hook.Name, Err: err}
	}
	if exitCode != 0 {
		detail := fmt.Sprintf("exit code %d", exitCode)
		if hook.Optional {
			recorder.record(ctx, label, statusSoftFailed, start, detail+" (optional)")
			return nil
		}
		recorder.record(ctx, label, statusFailed, start, detail)
		return &HookError{Hook: hook.Name, Code: exitCode}
	}

	recorder.record(ctx, label, statusOK, start, "")
	return nil
}
