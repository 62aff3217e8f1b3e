// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Command gatehouse is the container entrypoint for Evennia game
// images. Invoked with the configured selector (default "evennia") it
// runs the managed boot sequence and replaces itself with the game
// server; invoked with anything else it execs the command directly,
// unprivileged, with no side effects.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gatehouse-project/gatehouse/lib/config"
	"github.com/gatehouse-project/gatehouse/lib/process"
	"github.com/gatehouse-project/gatehouse/lib/version"
	"github.com/gatehouse-project/gatehouse/supervisor"
)

func main() {
	process.Exit(run())
}

func run() error {
	arguments := os.Args[1:]

	// The only flag-like token the supervisor intercepts, and only in
	// the command position. Everything else belongs to the command.
	if len(arguments) > 0 && arguments[0] == "--version" {
		fmt.Printf("gatehouse %s\n", version.Info())
		return nil
	}

	logLevel := slog.LevelInfo
	if os.Getenv("GATEHOUSE_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, loadErr := config.Load()
	if loadErr != nil {
		// A broken config file must not break pass-through: an
		// operator debugging the container still gets their shell.
		// The managed path treats the deferred error as fatal.
		cfg = config.Default()
	}

	s := supervisor.New(cfg, logger)
	s.ConfigError = loadErr
	return s.Run(context.Background(), arguments)
}
