// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package hookdef

import "time"

// Hook phases. Pre-migration hooks run after secret materialization
// and ownership repair but before the database snapshot and migration.
// Post-migration hooks run after the migration succeeds, immediately
// before the handoff.
const (
	PhasePreMigration  = "pre-migration"
	PhasePostMigration = "post-migration"
)

// Runtime defaults applied by the hook runner when a hook leaves the
// corresponding field empty.
const (
	DefaultTimeout     = time.Minute
	DefaultGracePeriod = 5 * time.Second
)

// Manifest is the parsed form of a hooks file: an optional description
// plus an ordered list of hooks. Hooks execute in manifest order
// within their phase.
type Manifest struct {
	// Description is free-form operator documentation. Not used at
	// runtime.
	Description string `json:"description,omitempty"`

	// Hooks is the ordered list of boot hooks. A manifest with no
	// hooks is valid: commenting out every entry is the normal way
	// to disable a hooks file without deleting it.
	Hooks []Hook `json:"hooks"`
}

// Hook is a single shell step executed during a managed boot.
type Hook struct {
	// Name is a human-readable identifier for this hook, used in
	// log output, the boot journal, and failure messages (e.g.,
	// "compile-translations", "warm-cache"). Required, and unique
	// within the manifest.
	Name string `json:"name"`

	// Run is a shell command executed via /bin/sh -c. Multi-line
	// strings are supported. Required.
	Run string `json:"run,omitempty"`

	// Phase selects when the hook runs: "pre-migration" (before the
	// database snapshot and migration) or "post-migration" (after a
	// successful migration, before the handoff). Empty defaults to
	// "pre-migration".
	Phase string `json:"phase,omitempty"`

	// When is a guard condition command. Runs before Run; if it
	// exits non-zero, the hook is skipped (not failed). Use for
	// conditional hooks: when: "test -f ${GAME_DIR}/requirements.txt"
	// skips dependency installation when there is nothing to install.
	When string `json:"when,omitempty"`

	// Optional means hook failure doesn't abort the boot. The
	// failure is logged and recorded in the journal but execution
	// continues. Use for best-effort hooks like cache warming.
	Optional bool `json:"optional,omitempty"`

	// Timeout is the maximum duration for this hook (e.g., "5m",
	// "30s"). Parsed by time.ParseDuration. The runner kills the
	// hook's process group if it exceeds this duration. When empty,
	// defaults to one minute at runtime.
	Timeout string `json:"timeout,omitempty"`

	// GracePeriod is the duration between SIGTERM and SIGKILL when
	// the hook's timeout expires. The runner signals the process
	// group with SIGTERM first, waits up to this duration, then
	// escalates to SIGKILL. When empty, defaults to five seconds.
	//
	// Parsed by time.ParseDuration.
	GracePeriod string `json:"grace_period,omitempty"`

	// Env sets additional environment variables for this hook only.
	// Merged with the boot environment; hook values take precedence
	// on conflict.
	Env map[string]string `json:"env,omitempty"`
}

// HooksFor returns the hooks belonging to the given phase, in manifest
// order. Hooks with an empty Phase belong to PhasePreMigration.
func (m *Manifest) HooksFor(phase string) []Hook {
	var selected []Hook
	for _, hook := range m.Hooks {
		effective := hook.Phase
		if effective == "" {
			effective = PhasePreMigration
		}
		if effective == phase {
			selected = append(selected, hook)
		}
	}
	return selected
}
