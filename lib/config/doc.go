// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the gatehouse
// supervisor.
//
// Configuration is layered, later sources winning:
//
//  1. Built-in defaults ([Default]), tuned for the stock game-server
//     image layout under /usr/src.
//  2. An optional YAML file: the path in the GATEHOUSE_CONFIG
//     environment variable, or /etc/gatehouse/config.yaml when that
//     variable is unset and the file exists. A container with neither
//     runs entirely on defaults and environment variables.
//  3. GATEHOUSE_* environment variables, the container-native override
//     surface (documented on each [Config] field).
//
// After layering, path fields undergo ${VAR} / ${VAR:-default}
// expansion (with GAME and FRAMEWORK bound to the configured roots),
// and empty dependent paths are derived from the game directory: the
// secret link, state directory, database path, and hooks manifest all
// default to their conventional locations under <game>/server.
//
// [Config.Validate] accumulates every problem with errors.Join rather
// than stopping at the first, so a broken deployment surfaces all its
// mistakes in one boot attempt. Validation is strict only on the
// managed path; pass-through invocations must work even with a broken
// managed configuration.
//
// This package depends on no other gatehouse packages.
package config
