// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package hookdef provides parsing and validation for boot hook
// manifests. Hooks are shell steps the supervisor runs around the
// database migration during a managed boot: dependency installation,
// asset compilation, cache warming, and similar game-specific setup
// that belongs to the deployment rather than to the supervisor itself.
//
// Manifests are authored on disk as JSONC files (JSON extended with
// comments and trailing commas), conventionally at
// <game>/server/conf/hooks.jsonc. The manifest is optional; a missing
// file means no hooks.
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Manifest
//  2. Validate: structural checks (required fields, known phases,
//     parseable durations)
//  3. HooksFor: select the hooks for a phase, in manifest order
package hookdef

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var manifest Manifest
	if err := json.Unmarshal(stripped, &manifest); err != nil {
		return nil, fmt.Errorf("parsing hooks manifest: %w", err)
	}

	return &manifest, nil
}

// ReadFile reads a JSONC hooks manifest from disk and parses it.
// Returns a descriptive error if the file cannot be read or the JSON
// is malformed. Callers that treat the manifest as optional should
// check the error against os.ErrNotExist.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return manifest, nil
}
