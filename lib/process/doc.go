// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the gatehouse
// binaries. These functions centralize the raw stderr reporting that is
// legitimate before the structured logger exists or after main() has
// decided to exit:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized (pre-logger).
//   - Deterministic exit-code selection for errors that carry one.
//
// All other raw I/O in the supervisor belongs to the structured logger
// or, for diagnostics, to the diagnostic stream.
package process
