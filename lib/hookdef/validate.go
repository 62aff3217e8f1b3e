// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package hookdef

import (
	"fmt"
	"regexp"
	"time"
)

// envNamePattern matches valid environment variable names: start with
// a letter or underscore, followed by letters, digits, or underscores.
// Anchored to the full string.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a Manifest for structural issues. Returns a list of
// human-readable issue descriptions. An empty list means the manifest
// is valid.
//
// Structural checks include:
//   - Each hook must have a non-empty Name; names must be unique
//   - Each hook must have a non-empty Run command
//   - Phase (when present) must be "pre-migration" or "post-migration"
//   - Timeout and GracePeriod (when present) must be parseable by
//     time.ParseDuration and positive
//   - Env keys must be valid environment variable names
//
// A manifest with zero hooks is valid.
func Validate(manifest *Manifest) []string {
	var issues []string

	// Hook names must be unique across the manifest. The boot
	// journal records one phase row per hook name; duplicates would
	// make the journal ambiguous about which hook a row describes.
	hookNames := make(map[string]int, len(manifest.Hooks))
	for index, hook := range manifest.Hooks {
		if hook.Name != "" {
			if firstIndex, exists := hookNames[hook.Name]; exists {
				issues = append(issues, fmt.Sprintf(
					"hooks[%d] %q: duplicate hook name (first used at hooks[%d])",
					index, hook.Name, firstIndex,
				))
			} else {
				hookNames[hook.Name] = index
			}
		}
	}

	for index, hook := range manifest.Hooks {
		prefix := fmt.Sprintf("hooks[%d]", index)
		issues = append(issues, validateHook(hook, prefix)...)
	}

	return issues
}

// validateHook checks a single hook for structural issues. The prefix
// identifies the hook's position (e.g., "hooks[0]") for error
// messages.
func validateHook(hook Hook, prefix string) []string {
	var issues []string

	if hook.Name == "" {
		issues = append(issues, fmt.Sprintf("%s: name is required", prefix))
	} else {
		prefix = fmt.Sprintf("%s %q", prefix, hook.Name)
	}

	if hook.Run == "" {
		issues = append(issues, fmt.Sprintf("%s: run is required", prefix))
	}

	switch hook.Phase {
	case "", PhasePreMigration, PhasePostMigration:
		// Valid.
	default:
		issues = append(issues, fmt.Sprintf(
			"%s: phase must be %q or %q, got %q",
			prefix, PhasePreMigration, PhasePostMigration, hook.Phase,
		))
	}

	if hook.Timeout != "" {
		if duration, err := time.ParseDuration(hook.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid timeout %q: %v", prefix, hook.Timeout, err))
		} else if duration <= 0 {
			issues = append(issues, fmt.Sprintf("%s: timeout must be positive, got %q", prefix, hook.Timeout))
		}
	}

	if hook.GracePeriod != "" {
		if duration, err := time.ParseDuration(hook.GracePeriod); err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid grace_period %q: %v", prefix, hook.GracePeriod, err))
		} else if duration <= 0 {
			issues = append(issues, fmt.Sprintf("%s: grace_period must be positive, got %q", prefix, hook.GracePeriod))
		}
	}

	for name := range hook.Env {
		if !envNamePattern.MatchString(name) {
			issues = append(issues, fmt.Sprintf(
				"%s: env[%q]: key must be a valid environment variable name ([A-Za-z_][A-Za-z0-9_]*)",
				prefix, name,
			))
		}
	}

	return issues
}
