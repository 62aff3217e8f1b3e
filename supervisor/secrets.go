// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gatehouse-project/gatehouse/lib/sealed"
	"github.com/gatehouse-project/gatehouse/lib/secret"
)

// materializeSecret links the mounted secret settings file into the
// game configuration directory. Three states are valid:
//
//   - A regular file at the secret source: link it.
//   - No plaintext, but a sealed source plus an age identity: decrypt
//     into the state directory (0600, target-owned) and link that.
//   - Neither: no-op. Development boots have no secret mount.
//
// The operation is idempotent. A link that already points at the right
// target is left alone; anything else at the link path is replaced,
// matching what every previous boot of the image would have done.
func (s *Supervisor) materializeSecret(ctx context.Context) phaseOutcome {
	_ = ctx // local filesystem work; signals are handled between phases

	source := s.Config.Secret.Source
	link := s.Config.Secret.Link

	info, err := os.Lstat(source)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return phaseOutcome{status: statusFailed, err: &SecretError{
				Err: fmt.Errorf("%s exists but is not a regular file", source),
			}}
		}
		if err := s.replaceLink(link, source); err != nil {
			return phaseOutcome{status: statusFailed, err: &SecretError{Err: err}}
		}
		return phaseOutcome{status: statusOK, detail: "linked " + source}

	case !os.IsNotExist(err):
		return phaseOutcome{status: statusFailed, err: &SecretError{
			Err: fmt.Errorf("stat %s: %w", source, err),
		}}
	}

	sealedPath := s.Config.Secret.SealedSource()
	if _, err := os.Stat(sealedPath); err != nil || s.Config.Secret.Identity == "" {
		return phaseOutcome{status: statusSkipped, detail: "no secret mounted"}
	}

	target, err := s.unsealSecret(sealedPath)
	if err != nil {
		return phaseOutcome{status: statusFailed, err: &SecretError{Err: err}}
	}
	if err := s.replaceLink(link, target); err != nil {
		return phaseOutcome{status: statusFailed, err: &SecretError{Err: err}}
	}
	return phaseOutcome{status: statusOK, detail: "unsealed " + sealedPath}
}

// unsealSecret decrypts the sealed secret source into the state
// directory and returns the plaintext file's path. The plaintext
// transits a locked memory buffer and lands on disk with mode 0600,
// owned by the target identity so the de-escalated game can read it.
func (s *Supervisor) unsealSecret(sealedPath string) (string, error) {
	identityFile, err := secret.ReadFromPath(s.Config.Secret.Identity)
	if err != nil {
		return "", fmt.Errorf("reading identity: %w", err)
	}
	defer identityFile.Close()

	ciphertext, err := os.ReadFile(sealedPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", sealedPath, err)
	}

	plaintext, err := sealed.Decrypt(ciphertext, identityFile)
	if err != nil {
		return "", fmt.Errorf("decrypting %s: %w", sealedPath, err)
	}
	defer plaintext.Close()

	target := filepath.Join(s.Config.Paths.State, filepath.Base(s.Config.Secret.Link))
	if err := writeFileAtomic(target, plaintext.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	if err := os.Chown(target, int(s.identity.UID), int(s.identity.GID)); err != nil {
		return "", fmt.Errorf("chown %s: %w", target, err)
	}
	return target, nil
}

// replaceLink points linkPath at target, clobbering whatever was there
// before. A correct existing link is left untouched so repeated boots
// do not churn the directory.
func (s *Supervisor) replaceLink(linkPath, target string) error {
	if current, err := os.Readlink(linkPath); err == nil && current == target {
		s.Logger.Debug("secret link already in place", "link", linkPath, "target", target)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(linkPath), err)
	}
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", linkPath, err)
	}
	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("linking %s: %w", linkPath, err)
	}

	// The link itself carries ownership too. Harmless for the kernel
	// (link permissions are ignored) but keeps tree listings coherent
	// after the ownership phase.
	if err := os.Lchown(linkPath, int(s.identity.UID), int(s.identity.GID)); err != nil {
		return fmt.Errorf("chown %s: %w", linkPath, err)
	}

	s.Logger.Info("secret settings linked", "link", linkPath, "target", target)
	return nil
}
