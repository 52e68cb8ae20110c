// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/privacyguard/pgo/internal/model"
	"github.com/privacyguard/pgo/internal/util"
)

// DefaultEvidenceFilename is used when the caller does not name the file.
const DefaultEvidenceFilename = "evidence.bin"

// StoreEvidence encrypts data with the environment-configured vault
// key and stores it under vaultDir/findingID/filename.
func StoreEvidence(vaultDir, findingID, filename string, data []byte, logger *slog.Logger) (model.EvidenceReceipt, error) {
	// Size guards run before the key is even read, so a misconfigured
	// vault still rejects bad input with the right error and without
	// any key-derivation work.
	if err := checkEvidenceSize(data); err != nil {
		return model.EvidenceReceipt{}, err
	}
	passphrase, err := KeyFromEnv()
	if err != nil {
		return model.EvidenceReceipt{}, err
	}
	return StoreEvidenceWithKey(vaultDir, findingID, filename, data, passphrase, logger)
}

// StoreEvidenceWithKey is StoreEvidence with an explicit passphrase
// (used by callers that prompt interactively instead of reading the
// environment).
func StoreEvidenceWithKey(vaultDir, findingID, filename string, data []byte, passphrase string, logger *slog.Logger) (model.EvidenceReceipt, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if filename == "" {
		filename = DefaultEvidenceFilename
	}
	if err := checkEvidenceSize(data); err != nil {
		return model.EvidenceReceipt{}, err
	}

	// Integrity hash is computed BEFORE encryption so it can be
	// verified later without the encryption key.
	integrityHash := ComputeIntegrityHash(data)

	encrypted, err := Encrypt(data, passphrase)
	if err != nil {
		return model.EvidenceReceipt{}, fmt.Errorf("encryption failed: %w", err)
	}

	// Containment runs before any filesystem operation, for both the
	// per-finding directory and the target file.
	findingDir, err := SecureJoin(vaultDir, findingID)
	if err != nil {
		return model.EvidenceReceipt{}, err
	}
	target, err := SecureJoin(vaultDir, findingID, filename)
	if err != nil {
		return model.EvidenceReceipt{}, err
	}

	if err := os.MkdirAll(findingDir, 0o700); err != nil {
		return model.EvidenceReceipt{}, fmt.Errorf("failed to create evidence directory: %w", err)
	}

	if err := util.AtomicWriteFile(target, encrypted, 0o600); err != nil {
		return model.EvidenceReceipt{}, fmt.Errorf("failed to write evidence: %w", err)
	}
	HardenDirectory(findingDir)

	receipt := model.EvidenceReceipt{
		FindingID:     findingID,
		IntegrityHash: integrityHash,
		StoredAtUTC:   model.NowUTC(),
		Path:          target,
	}

	logger.Info("evidence_stored",
		"finding_id", findingID,
		"integrity_hash", integrityHash[:12],
		"size_bytes", len(data),
		"path", target,
	)
	return receipt, nil
}

// RetrieveEvidence decrypts stored evidence using the
// environment-configured vault key. If expectedHash is non-empty the
// plaintext is re-hashed and an ErrIntegrityMismatch is returned on
// any difference.
func RetrieveEvidence(vaultDir, findingID, filename, expectedHash string) ([]byte, error) {
	passphrase, err := KeyFromEnv()
	if err != nil {
		return nil, err
	}
	return RetrieveEvidenceWithKey(vaultDir, findingID, filename, expectedHash, passphrase)
}

// RetrieveEvidenceWithKey is RetrieveEvidence with an explicit passphrase.
func RetrieveEvidenceWithKey(vaultDir, findingID, filename, expectedHash, passphrase string) ([]byte, error) {
	if filename == "" {
		filename = DefaultEvidenceFilename
	}

	target, err := SecureJoin(vaultDir, findingID, filename)
	if err != nil {
		return nil, err
	}

	encrypted, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrEvidenceNotFound, target)
		}
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}

	data, err := Decrypt(encrypted, passphrase)
	if err != nil {
		return nil, err
	}

	if expectedHash != "" {
		actual := ComputeIntegrityHash(data)
		if actual != expectedHash {
			return nil, fmt.Errorf("%w: expected %s... got %s...",
				ErrIntegrityMismatch, short(expectedHash), short(actual))
		}
	}
	return data, nil
}

func checkEvidenceSize(data []byte) error {
	if len(data) == 0 {
		return ErrEvidenceEmpty
	}
	if len(data) > MaxEvidenceBytes {
		return fmt.Errorf("%w: %d bytes", ErrEvidenceTooLarge, len(data))
	}
	return nil
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
