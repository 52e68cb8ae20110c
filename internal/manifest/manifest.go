// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package manifest loads the broker manifest - the YAML catalogue of
// data brokers a user works through.
//
// The loader is defensive about a file that crosses the trust
// boundary: a size cap rejects oversized files before parsing, decode
// is strict (unknown fields are errors), and failures surface as
// typed errors the CLI can report cleanly.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxManifestBytes is the manifest size cap (512 KB).
const MaxManifestBytes = 512 * 1024

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrManifestNotFound indicates the manifest file does not exist.
	ErrManifestNotFound = errors.New("manifest file not found")

	// ErrManifestTooLarge indicates the file exceeds MaxManifestBytes.
	ErrManifestTooLarge = fmt.Errorf("manifest exceeds size limit (%d bytes)", MaxManifestBytes)
)

// InvalidManifestError reports a manifest that failed parsing or
// validation.
type InvalidManifestError struct {
	Reason string
}

func (e *InvalidManifestError) Error() string {
	return "invalid manifest: " + e.Reason
}

// =============================================================================
// TYPES
// =============================================================================

// BrokerTarget is a single broker entry from the manifest.
type BrokerTarget struct {
	Name     string              `yaml:"name"`
	ID       string              `yaml:"id,omitempty"`
	Domain   string              `yaml:"domain,omitempty"`
	URL      string              `yaml:"url,omitempty"`
	Status   string              `yaml:"status,omitempty"`
	Notes    string              `yaml:"notes,omitempty"`
	Workflow []map[string]string `yaml:"workflow,omitempty"`
}

// manifestFile is the on-disk document shape.
type manifestFile struct {
	Brokers []BrokerTarget `yaml:"brokers"`
}

// =============================================================================
// LOADER
// =============================================================================

// Load reads and validates the broker manifest at path.
func Load(path string) ([]BrokerTarget, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if info.Size() > MaxManifestBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrManifestTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes. Strict decode: unknown fields are an
// error, so typos in the manifest fail loudly instead of silently
// dropping a broker attribute.
func Parse(data []byte) ([]BrokerTarget, error) {
	if len(data) > MaxManifestBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrManifestTooLarge, len(data))
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc manifestFile
	if err := dec.Decode(&doc); err != nil {
		return nil, &InvalidManifestError{Reason: err.Error()}
	}

	if len(doc.Brokers) == 0 {
		return nil, &InvalidManifestError{Reason: "no brokers defined"}
	}
	for i, b := range doc.Brokers {
		if strings.TrimSpace(b.Name) == "" {
			return nil, &InvalidManifestError{Reason: fmt.Sprintf("broker %d: name must not be blank", i)}
		}
	}
	return doc.Brokers, nil
}
