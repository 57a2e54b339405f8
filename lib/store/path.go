// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"zombiezen.com/go/nix/nixbase32"
)

// validNameChars are the characters allowed in a store path name,
// matching Nix's store path grammar.
const validNameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-._?="

// ValidateName checks that name is usable as a store path name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("store path name is empty")
	}
	if name[0] == '.' {
		return fmt.Errorf("store path name %q starts with a period", name)
	}
	for _, c := range name {
		if !strings.ContainsRune(validNameChars, c) {
			return fmt.Errorf("store path name %q contains invalid character %q", name, c)
		}
	}
	return nil
}

// PathFor computes the store path for a tree with the given NAR hash,
// name, and reference set, rooted at storeDir.
//
// This is the fixed-output scheme for recursively ingested SHA-256
// content: the fingerprint "source:<ref>...:sha256:<hash>:<dir>:<name>"
// is hashed, XOR-folded to 160 bits, and base-32 encoded. References
// participate sorted and deduplicated, so the resulting path is a pure
// function of content plus reference set. A self reference is never
// included: composed environments never refer to themselves.
func PathFor(storeDir, name string, narHash [sha256.Size]byte, references []string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	refs := make([]string, 0, len(references))
	seen := make(map[string]bool, len(references))
	for _, ref := range references {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)

	var fingerprint strings.Builder
	fingerprint.WriteString("source")
	for _, ref := range refs {
		fingerprint.WriteString(":")
		fingerprint.WriteString(ref)
	}
	fingerprint.WriteString(":sha256:")
	fingerprint.WriteString(hex.EncodeToString(narHash[:]))
	fingerprint.WriteString(":")
	fingerprint.WriteString(storeDir)
	fingerprint.WriteString(":")
	fingerprint.WriteString(name)

	digest := sha256.Sum256([]byte(fingerprint.String()))
	compressed := compressHash(digest[:], 20)

	return storeDir + "/" + nixbase32.EncodeToString(compressed) + "-" + name, nil
}

// compressHash XOR-folds hash into size bytes, the reduction Nix uses
// to shorten path digests to 160 bits.
func compressHash(hash []byte, size int) []byte {
	out := make([]byte, size)
	for i, b := range hash {
		out[i%size] ^= b
	}
	return out
}
