// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for sealed
// settings files. It wraps filippo.io/age for the specific operations
// gatehouse needs: generate x25519 keypairs, encrypt a settings file to
// one or more recipients (or a passphrase), and decrypt with an
// identity file at boot.
//
// Ciphertext is the raw binary age format, suitable for a
// secret_settings.py.age file mounted next to the plaintext secret
// path. Identities and decrypted plaintext travel in [secret.Buffer]
// values backed by mmap memory outside the Go heap (locked against
// swap, excluded from core dumps, zeroed on Close).
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] / [EncryptWithPassphrase] -- seal plaintext
//   - [Decrypt] / [DecryptWithPassphrase] -- unseal ciphertext
//   - [ValidateRecipient] -- recipient string validation
//
// Used by the supervisor (unseal settings during secret
// materialization) and gatehousectl (keygen, seal, check).
//
// Depends on lib/secret for secure memory allocation.
package sealed
