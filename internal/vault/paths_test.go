// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// SECURE JOIN
// =============================================================================

// resolvedTempDir returns a symlink-free temp dir, so expected paths
// can be compared byte for byte against SecureJoin output.
func resolvedTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestSecureJoinHappyPath(t *testing.T) {
	root := resolvedTempDir(t)

	got, err := SecureJoin(root, "f-1", "evidence.bin")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(got))
	require.Equal(t, filepath.Join(root, "f-1", "evidence.bin"), got)
}

func TestSecureJoinNonexistentTarget(t *testing.T) {
	// The target does not exist yet; containment is still decided.
	root := resolvedTempDir(t)

	got, err := SecureJoin(root, "not", "yet", "created")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "not", "yet", "created"), got)
}

func TestSecureJoinNonexistentRoot(t *testing.T) {
	root := filepath.Join(resolvedTempDir(t), "vault-to-be")

	got, err := SecureJoin(root, "f-1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "f-1"), got)
}

func TestSecureJoinRejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()

	for _, components := range [][]string{
		{".."},
		{"..", "other"},
		{"f-1", "..", "..", "escape"},
		{"../../etc/passwd"},
		{"f-1", "../../etc/passwd"},
	} {
		_, err := SecureJoin(root, components...)
		var traversalErr *PathTraversalError
		require.ErrorAs(t, err, &traversalErr, "components %v", components)
		require.Contains(t, traversalErr.Error(), "path traversal blocked")
	}
}

func TestSecureJoinRejectsAbsoluteComponent(t *testing.T) {
	root := t.TempDir()

	_, err := SecureJoin(root, "/etc/passwd")
	var traversalErr *PathTraversalError
	require.ErrorAs(t, err, &traversalErr)
}

func TestSecureJoinAllowsInternalDotDotThatStaysInside(t *testing.T) {
	// "a/../b" never leaves the root and is legal after cleaning.
	root := resolvedTempDir(t)

	got, err := SecureJoin(root, "a", "..", "b")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "b"), got)
}

func TestSecureJoinRootItself(t *testing.T) {
	root := resolvedTempDir(t)

	got, err := SecureJoin(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Clean(root), got)
}

// =============================================================================
// SYMLINKS
// =============================================================================

func TestSecureJoinBlocksSymlinkedSubdirEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	base := t.TempDir()
	root := filepath.Join(base, "vault")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(root, 0o700))
	require.NoError(t, os.MkdirAll(outside, 0o700))

	// A planted symlink inside the vault pointing out of it.
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "f-evil")))

	_, err := SecureJoin(root, "f-evil", "evidence.bin")
	var traversalErr *PathTraversalError
	require.ErrorAs(t, err, &traversalErr)
}

func TestSecureJoinFollowsSymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	base := t.TempDir()
	real := filepath.Join(base, "real-vault")
	link := filepath.Join(base, "vault-link")
	require.NoError(t, os.MkdirAll(real, 0o700))
	require.NoError(t, os.Symlink(real, link))

	// A root that IS a symlink is fine; containment is judged against
	// its resolved location, and the returned path is anchored there.
	got, err := SecureJoin(link, "f-1", "evidence.bin")
	require.NoError(t, err)

	realResolved, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(realResolved, "f-1", "evidence.bin"), got)
}

// =============================================================================
// HARDENING
// =============================================================================

func TestHardenDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions")
	}

	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	HardenDirectory(dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
