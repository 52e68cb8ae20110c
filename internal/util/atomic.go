// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the PGO core.
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path crash-safely:
//
//  1. Write to a temporary file in the same directory as the target
//     (same directory guarantees the rename is a same-filesystem,
//     atomic operation).
//  2. fsync the temp file.
//  3. Set the final permissions on the temp file BEFORE the rename,
//     so the target name is never observable with loose permissions.
//  4. Atomically rename temp -> target.
//  5. Best-effort fsync of the containing directory, for durability
//     of the rename across power loss on journaling filesystems.
//
// On any failure before the rename the temp file is removed, so no
// partial artifact lingers. The target is always either the previous
// complete version or absent - never partially written.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	dir := filepath.Dir(absPath)

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before chmod/rename - required on some systems (Windows).
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true

	// Without the directory fsync, power loss right after the rename
	// can leave the directory entry pointing at the old inode on
	// ext4-style filesystems. Best effort: not all platforms support
	// fsync on directories.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}
