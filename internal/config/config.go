// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config centralises every configurable path and flag so the
// CLI never hard-codes relative paths, environment overrides work, and
// tests can inject a custom root.
//
// The project root is the single source of truth for path derivation:
// it is discovered by walking upward from the working directory until
// a pgo.toml marker file is found. Running `pgo status` from a
// subdirectory must still resolve the same vault and database.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// MarkerFile identifies the project root directory.
const MarkerFile = "pgo.toml"

// RootNotFoundError indicates no pgo.toml was found in the parent chain.
type RootNotFoundError struct {
	Start string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("project root not found: no %s in parent chain of %s", MarkerFile, e.Start)
}

// Settings is the runtime configuration for PGO. Zero values are
// filled from defaults relative to RepoRoot; the pgo.toml file and
// PGO_* environment variables override in that order.
type Settings struct {
	RepoRoot     string `toml:"-"`
	ManifestPath string `toml:"manifest_path"`
	VaultDir     string `toml:"vault_dir"`
	DataDir      string `toml:"data_dir"`
	DBPath       string `toml:"db_path"`
	LogJSON      bool   `toml:"log_json"`
	LogLevel     string `toml:"log_level"`
}

// FindProjectRoot walks from start upward looking for pgo.toml and
// returns the first directory that contains it.
func FindProjectRoot(start string) (string, error) {
	origin, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	dir := origin
	for {
		if info, err := os.Stat(filepath.Join(dir, MarkerFile)); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &RootNotFoundError{Start: origin}
		}
		dir = parent
	}
}

// Load resolves settings for the project containing the working
// directory. PGO_ROOT bypasses discovery entirely (used by tests and
// scripted environments).
func Load() (Settings, error) {
	root := strings.TrimSpace(os.Getenv("PGO_ROOT"))
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read working directory: %w", err)
		}
		root, err = FindProjectRoot(cwd)
		if err != nil {
			return Settings{}, err
		}
	}
	return LoadFromRoot(root)
}

// LoadFromRoot resolves settings anchored at an explicit root.
func LoadFromRoot(root string) (Settings, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to resolve root: %w", err)
	}

	s := Settings{
		RepoRoot: root,
		LogJSON:  true,
		LogLevel: "info",
	}

	// Config file is optional; a bare marker file is a valid project.
	markerPath := filepath.Join(root, MarkerFile)
	if _, err := os.Stat(markerPath); err == nil {
		if _, err := toml.DecodeFile(markerPath, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", markerPath, err)
		}
	}

	applyEnvOverrides(&s)
	s.applyDefaults()
	return s, nil
}

// applyDefaults fills unset paths relative to the root and makes
// relative configured paths root-anchored.
func (s *Settings) applyDefaults() {
	if s.ManifestPath == "" {
		s.ManifestPath = filepath.Join("manifests", "brokers_manifest.yaml")
	}
	if s.VaultDir == "" {
		s.VaultDir = "vault"
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	s.ManifestPath = s.anchor(s.ManifestPath)
	s.VaultDir = s.anchor(s.VaultDir)
	s.DataDir = s.anchor(s.DataDir)
	if s.DBPath == "" {
		s.DBPath = filepath.Join(s.DataDir, "pgo.db")
	}
	s.DBPath = s.anchor(s.DBPath)
}

func (s *Settings) anchor(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.RepoRoot, path)
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("PGO_MANIFEST_PATH"); v != "" {
		s.ManifestPath = v
	}
	if v := os.Getenv("PGO_VAULT_DIR"); v != "" {
		s.VaultDir = v
	}
	if v := os.Getenv("PGO_DATA_DIR"); v != "" {
		s.DataDir = v
	}
	if v := os.Getenv("PGO_DB_PATH"); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv("PGO_LOG_JSON"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			s.LogJSON = parsed
		}
	}
	if v := os.Getenv("PGO_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

// EnsureDirs creates the vault and data directories if missing. The
// vault directory is created owner-only.
func (s *Settings) EnsureDirs() error {
	if err := os.MkdirAll(s.VaultDir, 0o700); err != nil {
		return fmt.Errorf("failed to create vault dir: %w", err)
	}
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return nil
}
