// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/bootmark"
)

// handoffSpec describes the process image replacement.
type handoffSpec struct {
	// target is argv[0] as invoked; resolved via PATH.
	target string

	// argv is the full original argument vector.
	argv []string

	// identity de-escalates in-process before exec. Nil keeps the
	// invoking identity (pass-through).
	identity *Identity

	// markerPath, when set, gets a boot marker immediately before
	// exec. Empty for pass-through, which must leave no trace.
	markerPath string

	// bootID and mode identify the attempt in the marker.
	bootID string
	mode   string
}

// handoff replaces the supervisor's process image with the target.
// On success it never returns: the managed process inherits PID 1,
// receives the container's signals directly, and its exit code is the
// container's. On failure the returned ExecError decides between 127
// (target not found) and 126 (found but not executable).
func (s *Supervisor) handoff(spec handoffSpec) error {
	path, err := exec.LookPath(spec.target)
	if err != nil {
		return &ExecError{
			Target:   spec.target,
			Err:      err,
			NotFound: errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist),
		}
	}

	// Permanent de-escalation happens before the marker write so the
	// marker, when present, always describes an exec attempt that had
	// already shed its privileges.
	if spec.identity != nil {
		if err := spec.identity.Assume(); err != nil {
			return &ExecError{Target: spec.target, Err: err}
		}
	}

	if spec.markerPath != "" {
		state := bootmark.State{
			BootID:    spec.bootID,
			Mode:      spec.mode,
			Target:    path,
			Argv:      spec.argv,
			Timestamp: time.Now().UTC(),
		}
		if s.report != nil {
			state.SupervisorDigest = s.report.SupervisorDigest
		}
		// Advisory: a failed marker write must not block the boot it
		// exists to describe.
		if err := bootmark.Write(spec.markerPath, state); err != nil {
			s.Logger.Warn("boot marker write failed", "path", spec.markerPath, "error", err)
		}
	}

	s.Logger.Info("handing off", "target", path, "mode", spec.mode)

	execFunction := s.ExecFunc
	if execFunction == nil {
		execFunction = syscall.Exec
	}
	err = execFunction(path, spec.argv, os.Environ())
	if err == nil {
		// The real exec does not return on success; only an injected
		// ExecFunc can get here.
		return nil
	}

	// If we reach here, exec() failed. The process was NOT replaced.
	if spec.markerPath != "" {
		if clearErr := bootmark.Clear(spec.markerPath); clearErr != nil {
			s.Logger.Warn("clearing boot marker after exec failure", "error", clearErr)
		}
	}
	return &ExecError{
		Target:   spec.target,
		Err:      err,
		NotFound: errors.Is(err, syscall.ENOENT),
	}
}
