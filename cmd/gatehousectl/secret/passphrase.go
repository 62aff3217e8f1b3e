// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"

	libsecret "github.com/gatehouse-project/gatehouse/lib/secret"
)

// promptPassphrase reads a passphrase into locked memory. On a
// terminal it prompts with echo disabled, asking twice when confirm is
// set; with piped stdin it reads a single line without prompting, so
// scripts can feed the passphrase through a pipe.
func promptPassphrase(prompt string, confirm bool) (*libsecret.Buffer, error) {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading passphrase: %w", err)
			}
			return nil, fmt.Errorf("passphrase is empty")
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			return nil, fmt.Errorf("passphrase is empty")
		}
		return libsecret.NewFromBytes(line)
	}

	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("passphrase is empty")
	}

	if !confirm {
		return libsecret.NewFromBytes(first)
	}

	fmt.Fprintf(os.Stderr, "Confirm %s: ", prompt)
	second, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		libsecret.Zero(first)
		return nil, fmt.Errorf("reading confirmation: %w", err)
	}

	match := len(first) == len(second)
	if match {
		for i := range first {
			if first[i] != second[i] {
				match = false
				break
			}
		}
	}
	libsecret.Zero(second)
	if !match {
		libsecret.Zero(first)
		return nil, fmt.Errorf("passphrases do not match")
	}

	return libsecret.NewFromBytes(first)
}
