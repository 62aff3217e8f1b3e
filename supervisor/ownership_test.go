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
)

func TestChownTreeAlreadyOwned(t *testing.T) {
	t.Parallel()

	// Everything under a fresh temp dir already belongs to the test
	// user, so the walk should touch nothing.
	root := t.TempDir()
	for _, name := range []string{"server/conf", "server/logs"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "server", "evennia.db3"), []byte("db"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Symlink("evennia.db3", filepath.Join(root, "server", "link")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	changed, err := chownTree(context.Background(), root, currentTestIdentity(t))
	if err != nil {
		t.Fatalf("chownTree: %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0 for an already-owned tree", changed)
	}
}

func TestChownTreeMissingRoot(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "gone")
	_, err := chownTree(context.Background(), missing, currentTestIdentity(t))
	if err == nil {
		t.Fatal("chownTree succeeded on a missing root")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error %q does not name the path", err)
	}
}

func TestChownTreeCanceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for i := 0; i < 10; i++ {
		dir := filepath.Join(root, "dir", string(rune('a'+i)))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled context stops the walk without an error; the phase
	// wrapper decides what the cancellation means.
	if _, err := chownTree(ctx, root, currentTestIdentity(t)); err != nil {
		t.Fatalf("chownTree under canceled context: %v", err)
	}
}

func TestPrepareOwnership(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)
	s.identity = currentTestIdentity(t)

	outcome := s.prepareOwnership(context.Background())
	if outcome.err != nil {
		t.Fatalf("prepareOwnership: %v", outcome.err)
	}
	if outcome.status != statusOK {
		t.Errorf("status = %q, want %q", outcome.status, statusOK)
	}
	if !strings.Contains(outcome.detail, "re-owned to") {
		t.Errorf("detail = %q", outcome.detail)
	}
}

func TestPrepareOwnershipMissingTree(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t)
	s.identity = currentTestIdentity(t)
	s.Config.Paths.Framework = filepath.Join(t.TempDir(), "missing")

	outcome := s.prepareOwnership(context.Background())
	if outcome.err == nil {
		t.Fatal("prepareOwnership succeeded with a missing framework tree")
	}
	var ownershipErr *OwnershipError
	if !errors.As(outcome.err, &ownershipErr) {
		t.Fatalf("error %T is not an OwnershipError", outcome.err)
	}
}
