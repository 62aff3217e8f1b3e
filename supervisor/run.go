// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// stepOptions configures one supervised child process run. The zero
// value runs in the current directory, as the current user, with the
// supervisor's own stdio.
type stepOptions struct {
	// dir is the child's working directory.
	dir string

	// env is merged over the supervisor's environment.
	env map[string]string

	// identity, when non-nil, de-escalates the child via process
	// credentials and rewrites HOME, USER, and LOGNAME to match. The
	// game's tooling trusts those variables more than getuid.
	identity *Identity

	// gracePeriod is the SIGTERM-to-SIGKILL gap on timeout or
	// cancellation. Zero means immediate SIGKILL.
	gracePeriod time.Duration

	// stdout and stderr default to the supervisor's own.
	stdout io.Writer
	stderr io.Writer
}

// runShell executes a command string via sh -c under the step options.
// Returns the exit code and any error (signals, context cancellation);
// a non-zero exit is not an error, it is a result.
func runShell(ctx context.Context, command string, opts stepOptions) (int, error) {
	return runStep(ctx, exec.CommandContext(ctx, "sh", "-c", command), opts)
}

// runArgv executes an argument vector, resolving argv[0] via PATH,
// under the step options.
func runArgv(ctx context.Context, argv []string, opts stepOptions) (int, error) {
	return runStep(ctx, exec.CommandContext(ctx, argv[0], argv[1:]...), opts)
}

// runStep runs a prepared command in its own process group so that
// timeout and cancellation signals reach the whole tree, not just the
// immediate child. Without Setpgid, grandchildren survive the kill and
// hold the inherited stderr open, wedging the boot.
//
// With a positive grace period, cancellation sends SIGTERM to the
// group first and escalates to SIGKILL after the grace period; with a
// zero grace period SIGKILL is immediate. Grace matters for steps that
// mutate the database mid-flight.
func runStep(ctx context.Context, cmd *exec.Cmd, opts stepOptions) (int, error) {
	cmd.Dir = opts.dir

	cmd.Stdout = opts.stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:    true,
		Credential: opts.identity.credential(),
	}

	if opts.gracePeriod > 0 {
		cmd.Cancel = func() error {
			processGroupID := -cmd.Process.Pid
			if err := syscall.Kill(processGroupID, syscall.SIGTERM); err != nil {
				// SIGTERM failed (process group already gone), escalate.
				return syscall.Kill(processGroupID, syscall.SIGKILL)
			}
			go func() {
				time.Sleep(opts.gracePeriod)
				// Best-effort: the process group may have already
				// exited. ESRCH from a dead group is harmless.
				_ = syscall.Kill(processGroupID, syscall.SIGKILL)
			}()
			return nil
		}
	} else {
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}

	cmd.Env = childEnvironment(opts)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		code := exitError.ExitCode()
		if code == -1 && ctx.Err() != nil {
			// The child died from our own cancellation signal. Report
			// the cancellation, not the kill: the caller distinguishes
			// a tool that failed from a tool that was interrupted.
			return -1, ctx.Err()
		}
		return code, nil
	}

	// Non-exit errors: failed fork, credential rejection, or a
	// cancellation the child absorbed by exiting cleanly.
	return -1, err
}

// childEnvironment builds the child's environment: the supervisor's
// own, identity variables when de-escalated, then the step's extras.
// Later entries win under exec's last-wins duplicate handling.
func childEnvironment(opts stepOptions) []string {
	environment := os.Environ()
	if opts.identity != nil {
		environment = append(environment,
			"HOME="+opts.identity.Home,
			"USER="+opts.identity.Username,
			"LOGNAME="+opts.identity.Username,
		)
	}
	for name, value := range opts.env {
		environment = append(environment, name+"="+value)
	}
	return environment
}
