// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package realise

import (
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// persistLog writes a build log zstd-compressed under
// <state>/logs/<installID>-<timestamp>.log.zst. Logs are diagnostic
// material only, so failures are reported and swallowed.
func (r *Realiser) persistLog(installID string, log []byte) {
	if len(log) == 0 {
		return
	}
	dir := filepath.Join(r.StateDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.Logger.Warn("cannot persist build log",
			"component", "realise", "install_id", installID, "error", err)
		return
	}
	name := installID + "-" + time.Now().UTC().Format("20060102T150405Z") + ".log.zst"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		r.Logger.Warn("cannot persist build log",
			"component", "realise", "install_id", installID, "error", err)
		return
	}
	enc, err := zstd.NewWriter(f)
	if err == nil {
		_, err = enc.Write(log)
		if closeErr := enc.Close(); err == nil {
			err = closeErr
		}
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		r.Logger.Warn("cannot persist build log",
			"component", "realise", "install_id", installID, "error", err)
		os.Remove(path)
		return
	}
	r.Logger.Debug("build log persisted",
		"component", "realise", "install_id", installID, "path", path)
}
