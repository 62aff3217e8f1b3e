// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/testutil"
)

func TestRunShellExitCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	code, err := runShell(ctx, "true", stepOptions{})
	if err != nil {
		t.Fatalf("runShell(true): %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	code, err = runShell(ctx, "exit 3", stepOptions{})
	if err != nil {
		t.Fatalf("runShell(exit 3): %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestRunArgvResolvesPath(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code, err := runArgv(context.Background(), []string{"sh", "-c", "echo ok"}, stepOptions{stdout: &out})
	if err != nil {
		t.Fatalf("runArgv: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if got := strings.TrimSpace(out.String()); got != "ok" {
		t.Errorf("stdout = %q, want %q", got, "ok")
	}
}

func TestRunStepWorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out bytes.Buffer
	code, err := runShell(context.Background(), "pwd", stepOptions{dir: dir, stdout: &out})
	if err != nil {
		t.Fatalf("runShell(pwd): %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got := strings.TrimSpace(out.String()); got != dir {
		t.Errorf("working directory = %q, want %q", got, dir)
	}
}

func TestRunStepEnvironment(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	opts := stepOptions{
		env:    map[string]string{"GATEHOUSE_TEST_VALUE": "threaded"},
		stdout: &out,
	}
	code, err := runShell(context.Background(), `printf '%s' "$GATEHOUSE_TEST_VALUE"`, opts)
	if err != nil {
		t.Fatalf("runShell: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out.String() != "threaded" {
		t.Errorf("env threading: got %q, want %q", out.String(), "threaded")
	}
}

func TestRunStepIdentityEnvironment(t *testing.T) {
	t.Parallel()

	// The current identity needs no credential switch, so only the
	// environment rewrite is observable.
	identity := currentTestIdentity(t)
	identity.Home = "/srv/game-home"

	var out bytes.Buffer
	opts := stepOptions{
		identity: identity,
		stdout:   &out,
	}
	code, err := runShell(context.Background(), `printf '%s %s' "$HOME" "$USER"`, opts)
	if err != nil {
		t.Fatalf("runShell: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	want := "/srv/game-home " + identity.Username
	if out.String() != want {
		t.Errorf("identity environment = %q, want %q", out.String(), want)
	}
}

func TestRunStepTimeoutKillsChild(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := runShell(ctx, "sleep 30", stepOptions{})
		done <- result{code, err}
	}()

	got := testutil.RequireReceive(t, done, 5*time.Second, "child was not reaped promptly after timeout")
	if got.err == nil {
		t.Fatalf("runShell survived timeout with exit code %d", got.code)
	}
	if got.code != -1 {
		t.Errorf("exit code = %d, want -1 for a non-exit error", got.code)
	}
}

func TestRunStepGracePeriodDeliversTerm(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The child traps SIGTERM, reports it, and exits on its own within
	// the grace period.
	var out bytes.Buffer
	script := `trap 'printf terminated; exit 0' TERM; sleep 30 & wait`
	opts := stepOptions{gracePeriod: 5 * time.Second, stdout: &out}

	_, err := runShell(ctx, script, opts)
	if err == nil {
		t.Fatal("runShell returned nil error after cancellation")
	}
	if out.String() != "terminated" {
		t.Errorf("child output = %q, want %q (SIGTERM not delivered before SIGKILL)", out.String(), "terminated")
	}
}
