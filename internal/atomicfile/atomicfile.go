/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package atomicfile provides atomic-replace semantics for the handful of
// stable on-disk artifacts this system owns (catalog.json, rotation.json,
// pipeline_state.json, and every file under the content store). Every
// writer goes through here instead of os.WriteFile directly so that a
// reader never observes a half-written file.
package atomicfile

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile writes data to path using write-temp-fsync-rename semantics.
// The parent directory is created if missing.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}

// Touch creates an empty marker file at path atomically, e.g. the
// content store's "flagged" marker.
func Touch(path string) error {
	return WriteFile(path, []byte{}, 0o644)
}

// Remove deletes path if present; absence is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether path names a regular, readable file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
