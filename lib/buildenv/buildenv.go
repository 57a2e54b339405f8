// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package buildenv

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// skipSuffixes are source paths that never enter a composed
// environment: either useless in a profile or a guaranteed source of
// pointless collisions (every Python package ships its own
// site-packages/easy-install.pth, every Nix output its nix-support).
var skipSuffixes = []string{
	"/propagated-build-inputs",
	"/nix-support",
	"/perllocal.pod",
	"/info/dir",
	"/log",
	"/manifest.nix",
	"/manifest.json",
}

// buildState tracks per-destination priorities across the whole merge
// so later candidates can be ordered against whatever currently owns a
// path.
type buildState struct {
	priorities map[string]Priority
	symlinks   int
	logger     *slog.Logger
}

// Build merges the trees of all active realised packages into the
// directory out. Candidates are processed in ascending Priority order;
// same-path collisions resolve to the lowest priority, and an exact
// package-priority tie between different parent packages aborts the
// merge with a FileConflict. Either the whole environment is linked or
// an error is returned; Build never leaves a partially usable result
// behind on error (callers build into a temp dir and discard it).
func Build(out string, pkgs []RealisedPackage, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	state := &buildState{
		priorities: make(map[string]Priority),
		logger:     logger,
	}

	sorted := make([]RealisedPackage, len(pkgs))
	copy(sorted, pkgs)
	// Process in priority order to reduce unnecessary link/unlink
	// churn. The ParentOutPath component makes the order stable for
	// packages tying on user priority.
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Priority.Compare(sorted[j].Priority); c != 0 {
			return c < 0
		}
		return sorted[i].Path < sorted[j].Path
	})

	done := make(map[string]bool)
	for _, pkg := range sorted {
		if !pkg.Active || done[pkg.Path] {
			continue
		}
		done[pkg.Path] = true
		if err := createLinks(state, pkg.Path, out, pkg.Priority); err != nil {
			return err
		}
	}

	logger.Debug("composed environment", "symlinks", state.symlinks, "out", out)
	return nil
}

// createLinks links the contents of srcDir into dstDir, recursively
// merging directories and resolving terminal file collisions by
// priority. Directories themselves are never "won": only files and
// symlinks are subject to conflict resolution.
func createLinks(state *buildState, srcDir, dstDir string, priority Priority) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			state.logger.Warn("not including package path in environment: not a directory", "path", srcDir)
			return nil
		}
		return fmt.Errorf("reading %s: %w", srcDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name[0] == '.' {
			// not matched by glob
			continue
		}
		srcFile := filepath.Join(srcDir, name)
		dstFile := filepath.Join(dstDir, name)

		srcInfo, err := os.Stat(srcFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				state.logger.Warn("skipping dangling symlink", "path", dstFile)
				continue
			}
			return fmt.Errorf("getting status of %s: %w", srcFile, err)
		}

		if hasSkipSuffix(srcFile) {
			continue
		}

		if srcInfo.IsDir() {
			if err := mergeDirectory(state, srcFile, dstFile, priority); err != nil {
				return err
			}
			continue
		}

		if err := mergeLeaf(state, srcFile, dstFile, priority); err != nil {
			return err
		}
	}
	return nil
}

// mergeDirectory handles a source entry that is a directory: merge
// into an existing destination directory, or promote a destination
// symlink-to-directory into a real directory merging both sides.
func mergeDirectory(state *buildState, srcFile, dstFile string, priority Priority) error {
	dstInfo, err := os.Lstat(dstFile)
	switch {
	case err == nil && dstInfo.IsDir():
		return createLinks(state, srcFile, dstFile, priority)

	case err == nil && dstInfo.Mode()&fs.ModeSymlink != 0:
		// An earlier package claimed this directory with a single
		// symlink. Replace the symlink with a real directory and
		// recursively merge the old target and the new source.
		target, err := filepath.EvalSymlinks(dstFile)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", dstFile, err)
		}
		targetInfo, err := os.Lstat(target)
		if err != nil {
			return fmt.Errorf("getting status of %s: %w", target, err)
		}
		if !targetInfo.IsDir() {
			return fmt.Errorf("collision between %q and non-directory %q", srcFile, target)
		}
		if err := os.Remove(dstFile); err != nil {
			return fmt.Errorf("unlinking %s: %w", dstFile, err)
		}
		if err := os.Mkdir(dstFile, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dstFile, err)
		}
		if err := createLinks(state, target, dstFile, state.priorities[dstFile]); err != nil {
			return err
		}
		return createLinks(state, srcFile, dstFile, priority)

	case err == nil:
		return fmt.Errorf("collision between directory %q and non-directory %q", srcFile, dstFile)

	case errors.Is(err, fs.ErrNotExist):
		return symlinkInto(state, srcFile, dstFile, priority)

	default:
		return fmt.Errorf("getting status of %s: %w", dstFile, err)
	}
}

// mergeLeaf handles a source entry that is a file or symlink: the
// terminal case where priorities decide.
func mergeLeaf(state *buildState, srcFile, dstFile string, priority Priority) error {
	dstInfo, err := os.Lstat(dstFile)
	switch {
	case err == nil && dstInfo.Mode()&fs.ModeSymlink != 0:
		prev := state.priorities[dstFile]

		// The existing entry has a strictly higher precedence
		// (numerically lower priority): keep it.
		if prev.PackagePriority < priority.PackagePriority {
			return nil
		}

		if prev.PackagePriority == priority.PackagePriority {
			// Equal priority from different parent packages is a
			// genuine conflict the user must disambiguate.
			if prev.ParentOutPath != priority.ParentOutPath {
				existing, readErr := os.Readlink(dstFile)
				if readErr != nil {
					existing = dstFile
				}
				return &FileConflict{
					FileA:    existing,
					FileB:    srcFile,
					Priority: priority.PackagePriority,
				}
			}
			// Outputs of the same derivation never conflict: the
			// lower internal index (primary output first) wins.
			if prev.InternalIndex < priority.InternalIndex {
				return nil
			}
		}

		if err := os.Remove(dstFile); err != nil {
			return fmt.Errorf("unlinking %s: %w", dstFile, err)
		}
		return symlinkInto(state, srcFile, dstFile, priority)

	case err == nil && dstInfo.IsDir():
		return fmt.Errorf("collision between non-directory %q and directory %q", srcFile, dstFile)

	case err == nil:
		return fmt.Errorf("collision between %q and existing file %q", srcFile, dstFile)

	case errors.Is(err, fs.ErrNotExist):
		return symlinkInto(state, srcFile, dstFile, priority)

	default:
		return fmt.Errorf("getting status of %s: %w", dstFile, err)
	}
}

// symlinkInto records the winning priority for dstFile and links it.
func symlinkInto(state *buildState, srcFile, dstFile string, priority Priority) error {
	if err := os.MkdirAll(filepath.Dir(dstFile), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(dstFile), err)
	}
	if err := os.Symlink(srcFile, dstFile); err != nil {
		return fmt.Errorf("linking %s: %w", dstFile, err)
	}
	state.priorities[dstFile] = priority
	state.symlinks++
	return nil
}

func hasSkipSuffix(path string) bool {
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
