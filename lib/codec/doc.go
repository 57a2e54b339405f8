// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding and decoding for
// floxenv's on-disk metadata (store path-info records).
//
// All encoding uses RFC 8949 Core Deterministic Encoding so that the
// same logical value always serializes to identical bytes. The store
// relies on this: registering the same path twice must write the same
// record.
package codec
