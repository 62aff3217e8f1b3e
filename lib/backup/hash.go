// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest. Both snapshot hashes (content and
// blob) are this size.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures that the same input bytes produce different
// hashes in different contexts, preventing cross-domain collisions.
type domainKey [32]byte

// Domain separation keys. These are fixed constants — changing them
// invalidates the hashes of every existing snapshot. The byte values
// are the ASCII encoding of the domain name, zero-padded to 32 bytes.
// Using readable ASCII makes the keys inspectable in hex dumps and
// debuggers without sacrificing any cryptographic property (BLAKE3
// keyed mode treats the key as an opaque 32-byte value).
var (
	contentDomainKey = domainKey{
		'g', 'a', 't', 'e', 'h', 'o', 'u', 's', 'e', '.', 'b', 'a', 'c', 'k', 'u', 'p',
		'.', 'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0,
	}

	blobDomainKey = domainKey{
		'g', 'a', 't', 'e', 'h', 'o', 'u', 's', 'e', '.', 'b', 'a', 'c', 'k', 'u', 'p',
		'.', 'b', 'l', 'o', 'b', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashContent computes the content-domain BLAKE3 keyed hash of the
// uncompressed database bytes. Content hashes identify the data
// itself and stay valid across compression algorithm changes.
func HashContent(data []byte) Hash {
	return keyedHash(contentDomainKey, data)
}

// HashBlob computes the blob-domain BLAKE3 keyed hash of the
// compressed bytes as stored on disk. Blob hashes let verification
// detect on-disk corruption without decompressing.
func HashBlob(data []byte) Hash {
	return keyedHash(blobDomainKey, data)
}

// FormatHash returns the hex-encoded string representation of a hash.
// This is the canonical format used in manifests, logs, and CLI output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing snapshot hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("snapshot hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Hash {
	// NewKeyed requires exactly 32 bytes, which domainKey guarantees.
	// The error is only returned for wrong key length, so this cannot
	// fail with our fixed-size type.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("backup: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
