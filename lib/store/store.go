// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/flox-foundation/floxenv/lib/codec"
)

// metaDir holds path-info records inside the store root. The leading
// dot keeps it out of store path namespace (names may not start with
// a period).
const metaDir = ".meta"

// lockFile serializes insertions across processes.
const lockFile = ".lock"

// PathInfo records the identity and reference set of a store path.
// Serialized with deterministic CBOR, so re-registering a path always
// writes identical bytes.
type PathInfo struct {
	// Path is the full store path.
	Path string `cbor:"path"`

	// NarHash is the SHA-256 digest of the path's NAR serialization,
	// "sha256:" followed by 64 hex digits.
	NarHash string `cbor:"nar_hash"`

	// NarSize is the byte length of the NAR serialization.
	NarSize int64 `cbor:"nar_size"`

	// References are the store paths this path refers to, sorted and
	// deduplicated. Never contains Path itself.
	References []string `cbor:"references"`
}

// Store is a content-addressed store rooted at a directory. Entries
// are immutable once inserted; the reference set recorded with each
// entry keeps garbage collection correct.
type Store struct {
	root   string
	logger *slog.Logger
}

// Open opens (creating if necessary) the store rooted at root.
func Open(root string, logger *slog.Logger) (*Store, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("store root must be absolute, got %q", root)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(root, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// AddTree inserts the tree at srcDir into the store under name,
// recording references as the new path's reference set. The returned
// path is a pure function of the tree's content, the name, and the
// references: identical inputs yield the identical path, and inserting
// an already present path is a no-op.
//
// Insertion is atomic: the tree is materialized from its own canonical
// serialization under a temporary name inside the store, then renamed
// into place while holding the store lock. Readers never observe a
// partially inserted path.
func (s *Store) AddTree(srcDir, name string, references []string) (string, error) {
	var narBuf bytes.Buffer
	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(&narBuf, hasher)}
	if err := SerializeTree(counter, srcDir); err != nil {
		return "", fmt.Errorf("serializing %s: %w", srcDir, err)
	}
	var digest [sha256.Size]byte
	copy(digest[:], hasher.Sum(nil))

	refs := normalizeReferences(references)
	path, err := PathFor(s.root, name, digest, refs)
	if err != nil {
		return "", err
	}

	// Self references are excluded from path identity and from the
	// recorded set (a tree cannot name its own yet-uncomputed path,
	// and composed environments never reference themselves).
	info := PathInfo{
		Path:       path,
		NarHash:    "sha256:" + hex.EncodeToString(digest[:]),
		NarSize:    counter.n,
		References: refs,
	}

	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	if s.isValid(path) {
		s.logger.Debug("store path already present", "path", path)
		return path, nil
	}

	// A crash between installing the tree and recording its info
	// leaves the path present but unrecorded. The path is a function
	// of the content, so the tree on disk is exactly what would be
	// staged again; writing the missing record repairs the entry.
	if _, err := os.Lstat(path); err == nil {
		if err := s.writeInfo(&info); err != nil {
			return "", err
		}
		s.logger.Warn("repaired store path with missing info record", "path", path)
		return path, nil
	}

	tmp, err := os.MkdirTemp(s.root, ".tmp-insert-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	staged := filepath.Join(tmp, "tree")
	if err := UnpackTree(bytes.NewReader(narBuf.Bytes()), staged); err != nil {
		return "", fmt.Errorf("staging %s: %w", path, err)
	}
	if err := os.Rename(staged, path); err != nil {
		return "", fmt.Errorf("installing %s: %w", path, err)
	}

	if err := s.writeInfo(&info); err != nil {
		return "", err
	}

	s.logger.Debug("inserted store path", "path", path, "nar_size", info.NarSize, "references", len(refs))
	return path, nil
}

// EnsurePath verifies that path is a valid entry of this store.
func (s *Store) EnsurePath(path string) error {
	if !s.isValid(path) {
		return fmt.Errorf("store path %s is not valid", path)
	}
	return nil
}

// Info returns the recorded PathInfo for path.
func (s *Store) Info(path string) (*PathInfo, error) {
	data, err := os.ReadFile(s.infoFile(path))
	if err != nil {
		return nil, fmt.Errorf("reading path info for %s: %w", path, err)
	}
	var info PathInfo
	if err := codec.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding path info for %s: %w", path, err)
	}
	return &info, nil
}

// isValid reports whether path exists and has a path-info record.
func (s *Store) isValid(path string) bool {
	if _, err := os.Lstat(path); err != nil {
		return false
	}
	_, err := os.Stat(s.infoFile(path))
	return err == nil
}

func (s *Store) infoFile(path string) string {
	return filepath.Join(s.root, metaDir, filepath.Base(path)+".info")
}

func (s *Store) writeInfo(info *PathInfo) error {
	data, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding path info: %w", err)
	}
	tmp := s.infoFile(info.Path) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing path info: %w", err)
	}
	if err := os.Rename(tmp, s.infoFile(info.Path)); err != nil {
		return fmt.Errorf("installing path info: %w", err)
	}
	return nil
}

// lock takes the store-wide insertion lock.
func (s *Store) lock() (func(), error) {
	file, err := os.OpenFile(filepath.Join(s.root, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening store lock: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		return nil, fmt.Errorf("locking store: %w", err)
	}
	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}

// normalizeReferences sorts and deduplicates references.
func normalizeReferences(references []string) []string {
	seen := make(map[string]bool, len(references))
	refs := make([]string, 0, len(references))
	for _, ref := range references {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}
