// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package backup stores point-in-time snapshots of the game database,
// taken before each migration so a failed or regressive migration can
// be rolled back. A snapshot is a single compressed blob plus a CBOR
// manifest recording keyed BLAKE3 hashes (content and blob domains),
// sizes, and provenance. The compression algorithm is chosen per
// snapshot by probing a leading sample of the database.
//
// The store is manifest-driven: List, Prune, Verify, and Restore only
// consider snapshots whose manifest decodes. Orphan blobs are ignored
// and corrupt manifests are reported but never deleted.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gatehouse-project/gatehouse/lib/codec"
)

// snapshotTimeFormat renders the creation time as a sortable UTC
// stamp, e.g. "20260825T153000Z". Lexical order equals time order,
// so directory listings read oldest to newest.
const snapshotTimeFormat = "20060102T150405Z"

// Store manages the snapshot directory. All methods are safe for a
// single process; the supervisor is the only writer by construction
// (one boot at a time per container).
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the snapshot directory. The
// directory is created 0700: snapshots contain full copies of the
// game database.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup: store directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the snapshot directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Snapshot copies the database at source into a new compressed,
// hashed snapshot. The boot ID ties the snapshot to the supervisor
// run that took it; createdBy records the tool build for forensics.
//
// The database is read fully into memory; snapshot sources are
// expected to be modest (SQLite files of a game server). A missing
// source returns an error wrapping os.ErrNotExist so callers can
// treat "no database yet" as a skip rather than a failure.
func (s *Store) Snapshot(source, bootID, createdBy string) (*Manifest, error) {
	if bootID == "" {
		return nil, fmt.Errorf("backup: boot ID is required")
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading database %s: %w", source, err)
	}
	contentHash := HashContent(data)

	blob, tag, err := CompressAuto(data)
	if err != nil {
		return nil, fmt.Errorf("compressing %s: %w", source, err)
	}

	createdAt := time.Now().UTC()
	id := createdAt.Format(snapshotTimeFormat) + "-" + shortBootID(bootID)

	blobPath := filepath.Join(s.dir, id+tag.suffix())
	if err := writeFileAtomic(blobPath, blob, 0600); err != nil {
		return nil, fmt.Errorf("writing snapshot blob: %w", err)
	}

	manifest := &Manifest{
		ID:          id,
		BootID:      bootID,
		Source:      source,
		CreatedAt:   createdAt,
		CreatedBy:   createdBy,
		Compression: tag.String(),
		ContentHash: FormatHash(contentHash),
		BlobHash:    FormatHash(HashBlob(blob)),
		ContentSize: int64(len(data)),
		BlobSize:    int64(len(blob)),
	}

	encoded, err := codec.Marshal(manifest)
	if err != nil {
		os.Remove(blobPath)
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, id+manifestSuffix), encoded, 0600); err != nil {
		// Without its manifest the blob is unaddressable; don't
		// leave an orphan behind.
		os.Remove(blobPath)
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return manifest, nil
}

// List returns the manifests of all snapshots in the store, newest
// first. Manifests that fail to decode are skipped; their errors are
// joined into the returned error alongside the good manifests, so a
// single corrupt file does not hide the rest.
func (s *Store) List() ([]Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var manifests []Manifest
	var decodeErrors []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestSuffix) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			decodeErrors = append(decodeErrors, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		manifest, err := decodeManifest(data, path)
		if err != nil {
			decodeErrors = append(decodeErrors, err)
			continue
		}
		manifests = append(manifests, *manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		if !manifests[i].CreatedAt.Equal(manifests[j].CreatedAt) {
			return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
		}
		return manifests[i].ID > manifests[j].ID
	})

	return manifests, errors.Join(decodeErrors...)
}

// Load reads the manifest of a single snapshot by ID.
func (s *Store) Load(id string) (*Manifest, error) {
	path := filepath.Join(s.dir, id+manifestSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return decodeManifest(data, path)
}

// Prune removes the oldest snapshots beyond keep, returning the IDs
// removed. keep=0 removes everything. Snapshots with corrupt
// manifests are never pruned — deleting data because its metadata is
// unreadable is the operator's call, not ours.
func (s *Store) Prune(keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("backup: keep must be non-negative, got %d", keep)
	}

	manifests, listErr := s.List()
	if len(manifests) <= keep {
		return nil, listErr
	}

	var removed []string
	var removeErrors []error
	for _, manifest := range manifests[keep:] {
		if err := s.remove(&manifest); err != nil {
			removeErrors = append(removeErrors, err)
			continue
		}
		removed = append(removed, manifest.ID)
	}

	if listErr != nil {
		removeErrors = append(removeErrors, listErr)
	}
	return removed, errors.Join(removeErrors...)
}

// remove deletes a snapshot's blob and manifest. The blob goes first:
// if the blob removal fails, the manifest survives and the snapshot
// stays listed rather than becoming an invisible orphan.
func (s *Store) remove(manifest *Manifest) error {
	blobName, err := manifest.BlobName()
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, blobName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob for %s: %w", manifest.ID, err)
	}
	if err := os.Remove(filepath.Join(s.dir, manifest.ID+manifestSuffix)); err != nil {
		return fmt.Errorf("removing manifest for %s: %w", manifest.ID, err)
	}
	return nil
}

// Verify checks a snapshot's integrity against its manifest. The
// cheap check re-hashes the stored blob. With full=true the blob is
// also decompressed and the content hash verified, proving the
// snapshot can actually be restored.
func (s *Store) Verify(id string, full bool) error {
	manifest, err := s.Load(id)
	if err != nil {
		return err
	}

	blob, err := s.readBlob(manifest)
	if err != nil {
		return err
	}

	if !full {
		return nil
	}

	_, err = s.decode(manifest, blob)
	return err
}

// Restore decompresses a snapshot to destination after a full
// integrity check. Refuses to overwrite an existing file: restoring
// over a live database is destructive enough to warrant an explicit
// removal first. The restored file is written 0600; ownership and
// final permissions are the operator's to fix.
func (s *Store) Restore(id, destination string) error {
	if _, err := os.Lstat(destination); err == nil {
		return fmt.Errorf("restore: %s already exists (remove it first)", destination)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("restore: checking %s: %w", destination, err)
	}

	manifest, err := s.Load(id)
	if err != nil {
		return err
	}
	blob, err := s.readBlob(manifest)
	if err != nil {
		return err
	}
	content, err := s.decode(manifest, blob)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(destination, content, 0600); err != nil {
		return fmt.Errorf("restore: writing %s: %w", destination, err)
	}
	return nil
}

// readBlob reads a snapshot's blob and verifies its size and
// blob-domain hash against the manifest.
func (s *Store) readBlob(manifest *Manifest) ([]byte, error) {
	blobName, err := manifest.BlobName()
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(filepath.Join(s.dir, blobName))
	if err != nil {
		return nil, fmt.Errorf("reading blob for %s: %w", manifest.ID, err)
	}
	if int64(len(blob)) != manifest.BlobSize {
		return nil, fmt.Errorf("snapshot %s: blob is %d bytes, manifest says %d",
			manifest.ID, len(blob), manifest.BlobSize)
	}
	if got := FormatHash(HashBlob(blob)); got != manifest.BlobHash {
		return nil, fmt.Errorf("snapshot %s: blob hash mismatch (stored blob is corrupt)", manifest.ID)
	}
	return blob, nil
}

// decode decompresses a verified blob and checks the content-domain
// hash against the manifest.
func (s *Store) decode(manifest *Manifest, blob []byte) ([]byte, error) {
	tag, err := ParseCompressionTag(manifest.Compression)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", manifest.ID, err)
	}
	content, err := Decompress(blob, tag, int(manifest.ContentSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", manifest.ID, err)
	}
	if got := FormatHash(HashContent(content)); got != manifest.ContentHash {
		return nil, fmt.Errorf("snapshot %s: content hash mismatch after decompression", manifest.ID)
	}
	return content, nil
}

// shortBootID returns the leading hex segment of a boot UUID, enough
// to make snapshot IDs readable without repeating the full UUID.
func shortBootID(bootID string) string {
	if index := strings.IndexByte(bootID, '-'); index > 0 {
		return bootID[:index]
	}
	if len(bootID) > 8 {
		return bootID[:8]
	}
	return bootID
}

// writeFileAtomic writes data to path via a temporary file in the
// same directory, fsyncing before the rename so a crash never leaves
// a partial file under the final name.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return err
	}

	// Sync the parent directory so the rename itself is durable.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}
