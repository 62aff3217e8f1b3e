// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootmark provides atomic marker file operations for tracking
// the supervisor's process-image replacement. The supervisor writes a
// marker immediately before exec(); anything inspecting the container
// afterwards can distinguish "the supervisor died mid-sequence" (no
// fresh marker) from "the supervisor handed off and what died was the
// managed process" (fresh marker present).
//
// Lifecycle per container start:
//
//  1. Supervisor start: Clear any marker left on a persistent volume
//     by a previous container run.
//  2. Immediately before exec(): Write the marker with the boot ID,
//     mode, and handoff target.
//  3. Post-mortem: gatehousectl reads the marker via Check and reports
//     whether the last boot reached handoff.
//
// The marker is written atomically (temporary file, fsync, rename,
// parent directory sync) so readers never see a partial state, and
// checked with a staleness bound so ancient markers on long-lived
// volumes are not mistaken for the current boot.
package bootmark

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/codec"
)

// State records the handoff context. Written before exec() and read
// post-mortem to determine how far the boot sequence got.
type State struct {
	// BootID ties the marker to the boot report and journal row for
	// the same attempt.
	BootID string `cbor:"boot_id"`

	// Mode is the boot mode that performed the handoff. Only managed
	// boots write markers; pass-through leaves no trace.
	Mode string `cbor:"mode"`

	// Target is the absolute path of the binary the supervisor
	// replaced itself with.
	Target string `cbor:"target"`

	// Argv is the argument vector passed to the target.
	Argv []string `cbor:"argv"`

	// SupervisorDigest is the hex SHA256 of the supervisor binary that
	// performed the handoff.
	SupervisorDigest string `cbor:"supervisor_digest,omitempty"`

	// Timestamp is when the handoff was initiated. Used by Check to
	// discard stale markers from previous container runs.
	Timestamp time.Time `cbor:"timestamp"`
}

// Write atomically writes a marker file. The state is encoded to a
// temporary file in the same directory, fsynced for durability, and
// renamed into place. Readers never see a partial write.
//
// The file is created with mode 0600. The parent directory must
// already exist.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding marker state: %w", err)
	}

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary marker file: %w", err)
	}

	// Write, sync, close, in that order. If any step fails, remove the
	// temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary marker file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary marker file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary marker file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming marker file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss
	// between the rename and the OS flushing directory metadata.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Read reads and parses a marker file. When the file does not exist,
// the returned error wraps os.ErrNotExist (testable with errors.Is).
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing marker file %s: %w", path, err)
	}
	return state, nil
}

// Check reads a marker file and verifies it was written recently
// enough to describe the current container run. Returns the state and
// true when the file exists and its Timestamp is within maxAge of now.
// Returns a zero State and false when the file does not exist or is
// older than maxAge.
//
// Any other error (permission denied, corrupt data) is returned as-is
// so the caller can distinguish "no marker" from "marker exists but
// unreadable."
func Check(path string, maxAge time.Duration) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if time.Since(state.Timestamp) > maxAge {
		return State{}, false, nil
	}

	return state, true, nil
}

// Clear removes a marker file. Idempotent: returns nil when the file
// does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing marker file: %w", err)
	}
	return nil
}
