// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration for
// gatehouse state files.
//
// Gatehouse uses three serialization formats with a clear boundary:
//
//   - YAML for operator-written configuration (config.yaml).
//   - JSONC for operator-written boot hook manifests (hooks.jsonc).
//   - CBOR for machine-written state: the boot report, snapshot
//     manifests, and the handoff marker file.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every writer encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so report files can be compared across boots with cmp.
//
// For buffer-oriented operations (state files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR and never
//     surfaces in CLI JSON output. Example: the handoff marker state.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so a single `json` tag controls field naming and
//     omitempty for both formats. Examples: the boot report and
//     snapshot manifest, which gatehousectl re-emits as JSON.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract.
package codec
