// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package realise

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// CacheKey derives the realization-cache key from the canonical
// lockfile bytes. Realization is a pure function of the lockfile and
// the system, so one hash per (lockfile, system) pair identifies the
// result.
func CacheKey(lockfile []byte, system string) string {
	h := blake3.New()
	h.Write(lockfile)
	h.Write([]byte{0})
	h.Write([]byte(system))
	return hex.EncodeToString(h.Sum(nil))
}

func (r *Realiser) cacheLink(key string) string {
	return filepath.Join(r.StateDir, "envs", key)
}

// cachedEnv returns the previously realized store path for key, if the
// cache link exists and its target is still a valid store path.
func (r *Realiser) cachedEnv(key string) (string, bool) {
	target, err := os.Readlink(r.cacheLink(key))
	if err != nil {
		return "", false
	}
	if err := r.Store.EnsurePath(target); err != nil {
		return "", false
	}
	return target, true
}

// recordEnv points the cache link for key at the realized store path.
// The link is created aside and renamed so concurrent realizations of
// the same lockfile never observe a half-written link.
func (r *Realiser) recordEnv(key, storePath string) error {
	dir := filepath.Join(r.StateDir, "envs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating realization cache: %w", err)
	}
	tmp := filepath.Join(dir, ".tmp-"+key)
	os.Remove(tmp)
	if err := os.Symlink(storePath, tmp); err != nil {
		return fmt.Errorf("recording realization: %w", err)
	}
	if err := os.Rename(tmp, r.cacheLink(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recording realization: %w", err)
	}
	return nil
}
