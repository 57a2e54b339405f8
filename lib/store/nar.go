// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"zombiezen.com/go/nix/nar"
)

// SerializeTree writes the NAR (Nix archive) serialization of the tree
// at path to w. The NAR format is canonical by construction: directory
// entries are emitted in lexicographic order and only entry type,
// executable bit, file contents, and symlink targets are encoded. The
// byte stream is therefore a pure function of tree content —
// timestamps, ownership, and filesystem enumeration order cannot leak
// into it.
func SerializeTree(w io.Writer, path string) error {
	return nar.DumpPath(w, path)
}

// HashTree computes the SHA-256 digest and size of the NAR
// serialization of the tree at path.
func HashTree(path string) (digest [sha256.Size]byte, size int64, err error) {
	hasher := sha256.New()
	counter := &countingWriter{w: hasher}
	if err := SerializeTree(counter, path); err != nil {
		return digest, 0, fmt.Errorf("serializing %s: %w", path, err)
	}
	copy(digest[:], hasher.Sum(nil))
	return digest, counter.n, nil
}

// UnpackTree materializes a NAR stream at dest. Regular files, the
// executable bit, and symlinks are restored; any other entry type is
// rejected.
func UnpackTree(r io.Reader, dest string) error {
	narReader := nar.NewReader(r)
	for {
		hdr, err := narReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		path := filepath.Join(dest, filepath.FromSlash(hdr.Path))
		switch {
		case hdr.Mode.IsDir():
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}

		case hdr.Mode.IsRegular():
			mode := os.FileMode(0o644)
			if hdr.Mode&0o111 != 0 {
				mode = 0o755
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
			if err != nil {
				return err
			}
			if _, err := io.Copy(file, narReader); err != nil {
				file.Close()
				return fmt.Errorf("writing %s: %w", path, err)
			}
			if err := file.Close(); err != nil {
				return err
			}

		case hdr.Mode&fs.ModeSymlink != 0:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.LinkTarget, path); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unsupported archive entry %q (mode %v)", hdr.Path, hdr.Mode)
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
