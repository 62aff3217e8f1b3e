// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides SHA256 content hashing for binary files.
//
// Gatehouse records binary content hashes in the boot report: the
// digest of the supervisor binary that ran the boot sequence and the
// digest of the program it handed off to. Container images are often
// rebuilt without the entrypoint or the framework launcher actually
// changing; comparing digests of the binaries themselves tells an
// operator whether two boots ran the same code regardless of image
// tags.
//
// The API surface:
//
//   - [HashFile] -- streams a file through SHA256, returning a [32]byte
//     digest with constant memory usage regardless of file size
//   - [HashSelf] -- digest and resolved path of the running executable
//   - [FormatDigest] -- converts a [32]byte digest to its canonical
//     hex-encoded string representation, used in reports and logs
//   - [ParseDigest] -- parses a hex-encoded digest string back to a
//     [32]byte array, validating length and encoding
//
// This package has no dependencies on other gatehouse packages.
package binhash
