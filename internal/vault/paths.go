// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathTraversalError reports a vault path that escaped the storage
// root. Always fatal to the requested operation, never silently
// corrected, and raised BEFORE any filesystem operation is attempted.
type PathTraversalError struct {
	Component string
	VaultRoot string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal blocked: %q escapes vault root %s", e.Component, e.VaultRoot)
}

// SecureJoin joins caller-supplied components onto the vault root and
// verifies the result is still a descendant of the resolved root.
//
// Symlinks are resolved on the root and on the deepest existing
// ancestor of the target, so containment holds even when the vault
// root itself contains symlinks or an attacker plants a symlinked
// subdirectory inside the vault.
func SecureJoin(vaultRoot string, components ...string) (string, error) {
	rootResolved, err := resolveRoot(vaultRoot)
	if err != nil {
		return "", err
	}

	joined := rootResolved
	for _, c := range components {
		// An absolute component would silently re-anchor under the
		// root via Join; treat it as an escape attempt instead.
		if filepath.IsAbs(c) {
			return "", &PathTraversalError{Component: filepath.Join(components...), VaultRoot: rootResolved}
		}
		joined = filepath.Join(joined, c)
	}
	joined = filepath.Clean(joined)

	resolved, err := resolveExistingPrefix(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault path: %w", err)
	}

	if !isDescendant(rootResolved, resolved) {
		return "", &PathTraversalError{Component: filepath.Join(components...), VaultRoot: rootResolved}
	}
	return joined, nil
}

// resolveRoot returns the absolute, symlink-resolved vault root.
func resolveRoot(vaultRoot string) (string, error) {
	abs, err := filepath.Abs(vaultRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// Root not created yet: fall back to the lexical absolute
			// path; there is nothing on disk to symlink through.
			return filepath.Clean(abs), nil
		}
		return "", fmt.Errorf("failed to resolve vault root: %w", err)
	}
	return resolved, nil
}

// resolveExistingPrefix resolves symlinks in the deepest existing
// ancestor of path and re-joins the not-yet-existing remainder.
func resolveExistingPrefix(path string) (string, error) {
	var remainder []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return filepath.Clean(resolved), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Walked to the filesystem root without finding anything
			// that exists; nothing left to resolve.
			return filepath.Clean(path), nil
		}
		remainder = append(remainder, filepath.Base(cur))
		cur = parent
	}
}

// isDescendant reports whether target sits at or below root.
func isDescendant(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return false
	}
	return true
}

// HardenDirectory sets directory permissions to owner-only (0700).
// Best effort: some platforms (Windows) do not honour the mode.
func HardenDirectory(dir string) {
	_ = os.Chmod(dir, 0o700)
}
