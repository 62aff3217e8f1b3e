// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/codec"
)

// manifestSuffix is the filename suffix for snapshot manifests. A
// snapshot is the pair <id><blob suffix> + <id>.manifest; the store
// treats the manifest as authoritative and ignores orphan blobs.
const manifestSuffix = ".manifest"

// Manifest records the identity and integrity data of one snapshot.
// Stored on disk as deterministic CBOR; the json tags also serve
// operator-facing JSON output.
type Manifest struct {
	// ID is the snapshot identifier: the UTC creation timestamp
	// followed by the first eight characters of the boot ID, e.g.
	// "20260825T153000Z-b1946ac9". Doubles as the blob and manifest
	// filename stem.
	ID string `json:"id"`

	// BootID is the full boot identifier of the supervisor run that
	// took this snapshot.
	BootID string `json:"boot_id"`

	// Source is the absolute path of the database file that was
	// snapshotted.
	Source string `json:"source"`

	// CreatedAt is the snapshot creation time in UTC.
	CreatedAt time.Time `json:"created_at"`

	// CreatedBy identifies the tool build that wrote the snapshot,
	// e.g. "gatehouse v0.4.0 (a1b2c3d)".
	CreatedBy string `json:"created_by,omitempty"`

	// Compression is the blob compression algorithm name ("none",
	// "lz4", or "zstd").
	Compression string `json:"compression"`

	// ContentHash is the hex content-domain BLAKE3 hash of the
	// uncompressed database bytes.
	ContentHash string `json:"content_hash"`

	// BlobHash is the hex blob-domain BLAKE3 hash of the compressed
	// bytes as stored on disk.
	BlobHash string `json:"blob_hash"`

	// ContentSize and BlobSize are the uncompressed and on-disk
	// sizes in bytes.
	ContentSize int64 `json:"content_size"`
	BlobSize    int64 `json:"blob_size"`
}

// BlobName returns the blob filename for this manifest, derived from
// the ID and the compression tag.
func (m *Manifest) BlobName() (string, error) {
	tag, err := ParseCompressionTag(m.Compression)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", m.ID, err)
	}
	return m.ID + tag.suffix(), nil
}

// decodeManifest unmarshals a CBOR manifest and checks the fields the
// store relies on for addressing files.
func decodeManifest(data []byte, path string) (*Manifest, error) {
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if manifest.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing snapshot ID", path)
	}
	if _, err := ParseCompressionTag(manifest.Compression); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &manifest, nil
}
