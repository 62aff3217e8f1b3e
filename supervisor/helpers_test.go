// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/gatehouse-project/gatehouse/lib/config"
)

// testLogger returns a logger that discards everything. Tests that
// assert on log output construct their own.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// currentTestIdentity resolves the user running the tests. Running as
// oneself needs no privilege, so every de-escalation code path can be
// exercised unprivileged.
func currentTestIdentity(t *testing.T) *Identity {
	t.Helper()
	current, err := user.Current()
	if err != nil {
		t.Fatalf("user.Current: %v", err)
	}
	identity, err := ResolveIdentity(current.Username)
	if err != nil {
		t.Fatalf("ResolveIdentity(%q): %v", current.Username, err)
	}
	return identity
}

// testConfig builds a validating configuration rooted in a temp
// directory, with the game and framework trees created and the
// migration command set to a no-op. The selector stays "evennia";
// tests that exercise the managed path override it with a fake
// executable on PATH.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()

	current, err := user.Current()
	if err != nil {
		t.Fatalf("user.Current: %v", err)
	}
	cfg.User = current.Username
	cfg.Diagnostics = config.DiagnosticsOff

	cfg.Paths.Framework = filepath.Join(root, "evennia")
	cfg.Paths.Game = filepath.Join(root, "game")
	cfg.Paths.State = filepath.Join(root, "state")
	cfg.Secret.Source = filepath.Join(root, "secrets", "secret_settings.py")
	cfg.Secret.Link = filepath.Join(cfg.Paths.Game, "server", "conf", "secret_settings.py")
	cfg.Hooks.Manifest = filepath.Join(cfg.Paths.Game, "server", "conf", "hooks.jsonc")
	cfg.Snapshot.Database = filepath.Join(cfg.Paths.Game, "server", "evennia.db3")
	cfg.Migration.Command = []string{"true"}

	for _, dir := range []string{
		cfg.Paths.Framework,
		filepath.Join(cfg.Paths.Game, "server", "conf"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", dir, err)
		}
	}
	return cfg
}

// newTestSupervisor wires a Supervisor around testConfig with a
// discarding logger and output sink.
func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	s := New(testConfig(t), testLogger())
	s.Out = io.Discard
	return s
}
