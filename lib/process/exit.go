// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Coder is implemented by errors that carry a specific process exit
// code, such as a migration step propagating the migration tool's own
// code. Exit uses it to derive the final code deterministically instead
// of collapsing everything to 1.
type Coder interface {
	error
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with code 1. This is
// the standard gatehouse binary error handler. Use it in main() for
// errors from run() where the structured logger may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Exit writes "error: err" to stderr and exits with the code the error
// carries, or 1 when it carries none. A nil error exits 0 without
// output.
func Exit(err error) {
	if err == nil {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var coder Coder
	if errors.As(err, &coder) {
		os.Exit(coder.ExitCode())
	}
	os.Exit(1)
}
