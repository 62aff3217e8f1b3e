// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// statOwnership returns the syscall.Stat_t for a path, giving access
// to the raw UID and GID.
func statOwnership(path string) (*syscall.Stat_t, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("cannot read ownership of %s (non-Linux?)", path)
	}
	return stat, nil
}

// chownTree recursively changes ownership of everything under root to
// the identity. Symlinks themselves are re-owned, never followed: a
// link pointing outside the managed trees must not drag its target in.
//
// Individual failures are accumulated and the walk continues, so one
// immutable file produces one error line instead of hiding the rest of
// the tree's state. File modes are left untouched; the game's own
// files may carry intentionally restrictive permissions.
//
// Context cancellation stops the walk. Game volumes can hold millions
// of files and a SIGTERM during the walk should not wait it out.
func chownTree(ctx context.Context, root string, identity *Identity) (changed int, err error) {
	uid, gid := int(identity.UID), int(identity.GID)

	var chownErrors []error
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			chownErrors = append(chownErrors, fmt.Errorf("%s: %w", path, err))
			return nil // continue walking
		}
		stat, statErr := statOwnership(path)
		if statErr == nil && int(stat.Uid) == uid && int(stat.Gid) == gid {
			return nil
		}
		if chownErr := os.Lchown(path, uid, gid); chownErr != nil {
			chownErrors = append(chownErrors, fmt.Errorf("chown %s: %w", path, chownErr))
			return nil
		}
		changed++
		return nil
	})
	if walkErr != nil {
		return changed, fmt.Errorf("walking %s: %w", root, walkErr)
	}
	if len(chownErrors) > 0 {
		return changed, errors.Join(chownErrors...)
	}
	return changed, nil
}

// prepareOwnership hands the managed trees to the target identity
// before any de-escalated work runs. The game tree is typically a
// volume that has been written by several different UIDs over its
// life (host tooling, previous images, root shells); without this
// pass the de-escalated migration would fail on the first file it
// cannot open.
//
// Any failure is fatal. A partially-owned tree is exactly the state
// this phase exists to prevent.
func (s *Supervisor) prepareOwnership(ctx context.Context) phaseOutcome {
	total := 0
	for _, root := range []string{s.Config.Paths.Framework, s.Config.Paths.Game} {
		changed, err := chownTree(ctx, root, s.identity)
		if err != nil {
			return phaseOutcome{
				status: statusFailed,
				err:    &OwnershipError{Err: err},
			}
		}
		s.Logger.Debug("ownership prepared", "path", root, "changed", changed)
		total += changed
	}
	return phaseOutcome{
		status: statusOK,
		detail: fmt.Sprintf("%d entries re-owned to %s", total, s.identity),
	}
}
