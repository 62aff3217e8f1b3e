// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/gatehouse-project/gatehouse/lib/secret"
)

// Keypair holds an age x25519 keypair. The identity (private key) is
// stored in a secret.Buffer (mmap-backed, locked against swap, excluded
// from core dumps). The recipient (public key) is a plain string, safe
// to publish and to commit next to the game's deployment files.
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// Identity is the secret key in AGE-SECRET-KEY-1... format, stored
	// in mmap memory outside the Go heap. Must never be logged, baked
	// into an image layer, or passed on a command line.
	Identity *secret.Buffer

	// Recipient is the corresponding public key in age1... format.
	Recipient string
}

// Close releases the identity memory (zeros, unlocks, unmaps).
// Idempotent.
func (k *Keypair) Close() error {
	if k.Identity != nil {
		return k.Identity.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair. The identity is
// returned in a secret.Buffer; write it to the container's identity
// file (mode 0600) outside the image, typically via a secret mount.
//
// The caller must call Close on the returned Keypair when done.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// Move the identity string into mmap-backed memory immediately.
	// The heap string age hands us will be GC'd; the mmap buffer is
	// the durable copy.
	identityBuffer, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting identity: %w", err)
	}

	return &Keypair{
		Identity:  identityBuffer,
		Recipient: identity.Recipient().String(),
	}, nil
}

// Encrypt seals plaintext to one or more recipients specified by their
// age public key strings (age1... format). Returns raw binary age
// ciphertext suitable for writing to a .age file.
//
// At least one recipient is required. Sealing to several recipients
// (the production identity plus an operator escrow key) keeps the file
// recoverable when one identity is lost.
func Encrypt(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	return seal(plaintext, recipients...)
}

// EncryptWithPassphrase seals plaintext with a passphrase (age scrypt
// recipient). The passphrase is borrowed from the buffer and not
// closed by this function.
func EncryptWithPassphrase(plaintext []byte, passphrase *secret.Buffer) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	return seal(plaintext, recipient)
}

func seal(plaintext []byte, recipients ...age.Recipient) ([]byte, error) {
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Decrypt unseals raw age ciphertext using the identities in the given
// buffer. The buffer holds the contents of an age identity file: one or
// more AGE-SECRET-KEY-1... lines, comment lines starting with #
// tolerated. Returns the plaintext in a secret.Buffer (mmap-backed,
// zeroed on close).
//
// The identity buffer is borrowed and NOT closed by this function. The
// caller must Close the returned buffer when the plaintext is no
// longer needed.
func Decrypt(ciphertext []byte, identityFile *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	return unseal(ciphertext, identities...)
}

// DecryptWithPassphrase unseals raw age ciphertext sealed with
// EncryptWithPassphrase. The passphrase is borrowed and not closed.
func DecryptWithPassphrase(ciphertext []byte, passphrase *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	return unseal(ciphertext, identity)
}

func unseal(ciphertext []byte, identities ...age.Identity) (*secret.Buffer, error) {
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("decrypted plaintext is empty")
	}

	// Move the plaintext into mmap-backed memory immediately.
	// NewFromBytes zeros the heap copy.
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// ValidateRecipient checks that a string is a valid age x25519 public
// key. Useful for validating recipients from config before sealing.
func ValidateRecipient(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
