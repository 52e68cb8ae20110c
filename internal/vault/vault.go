// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault encrypts and stores opt-out evidence at rest.
//
// Security model:
//   - Key material is sourced ONLY from the environment (PGO_VAULT_KEY)
//     or an explicit caller-supplied passphrase - never stored on disk.
//   - Key derivation: PBKDF2-HMAC-SHA256, 600,000 iterations, per-write
//     random 16-byte salt.
//   - Encryption: AES-256-GCM (AEAD), per-write random 96-bit nonce.
//   - The integrity hash is computed BEFORE encryption, so it stays
//     verifiable even if the vault key is later unavailable.
//   - Every path is resolved and verified against the vault root
//     before any filesystem operation (see paths.go).
//   - Writes are atomic and durable (see internal/util).
//
// Encryption and decryption hold the full plaintext and ciphertext in
// memory; the 50 MB evidence ceiling is the stated bound for that, not
// an oversight. Evidence beyond that would need a streaming AEAD
// construction this package deliberately does not attempt.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// KeyEnvVar is the environment variable holding the vault passphrase.
const KeyEnvVar = "PGO_VAULT_KEY"

// SaltSize is the per-write random salt length for key derivation.
const SaltSize = 16

// NonceSize is the AES-GCM nonce length (96 bits per NIST SP 800-38D).
const NonceSize = 12

// KeySize is the derived AES-256 key length.
const KeySize = 32

// PBKDF2Iterations is the key-derivation work factor. OWASP recommends
// 600,000+ for PBKDF2-SHA-256 against modern brute-force hardware.
const PBKDF2Iterations = 600000

// gcmTagSize is the GCM authentication tag length appended to ciphertext.
const gcmTagSize = 16

// headerSize is the fixed prefix of the wire format:
// salt(16) || nonce(12) || ciphertext+tag.
const headerSize = SaltSize + NonceSize

// MaxEvidenceBytes is the evidence size ceiling (50 MB).
const MaxEvidenceBytes = 50 * 1024 * 1024

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrKeyMissing indicates no vault passphrase is configured.
	// Recoverable: supply the secret and retry.
	ErrKeyMissing = fmt.Errorf("vault encryption key not found: set %s environment variable", KeyEnvVar)

	// ErrDecryptionFailed covers every decryption failure: wrong key,
	// corrupted bytes, truncated blob, tampered ciphertext. One opaque
	// error; distinguishing the causes would hand an attacker an
	// oracle.
	ErrDecryptionFailed = errors.New("decryption failed: wrong key or corrupted data")

	// ErrEvidenceEmpty rejects zero-length evidence before any
	// cryptographic work.
	ErrEvidenceEmpty = errors.New("evidence data is empty")

	// ErrEvidenceTooLarge rejects evidence above MaxEvidenceBytes
	// before any cryptographic work.
	ErrEvidenceTooLarge = fmt.Errorf("evidence too large (max %d bytes)", MaxEvidenceBytes)

	// ErrIntegrityMismatch indicates decrypted evidence does not match
	// the expected integrity hash.
	ErrIntegrityMismatch = errors.New("evidence integrity check failed")

	// ErrEvidenceNotFound indicates no stored evidence for the finding.
	ErrEvidenceNotFound = errors.New("evidence not found")
)

// =============================================================================
// KEY MATERIAL
// =============================================================================

// ZeroBytes zeros key material so it does not linger for crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// KeyFromEnv reads the vault passphrase from the environment.
func KeyFromEnv() (string, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnvVar))
	if raw == "" {
		return "", ErrKeyMissing
	}
	return raw, nil
}

// DeriveKey derives a 256-bit AES key from a passphrase and salt using
// PBKDF2-HMAC-SHA256. Deliberately expensive: the work factor is the
// defence against offline brute force on a user-chosen passphrase.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// =============================================================================
// AEAD
// =============================================================================

// Encrypt seals plaintext under a PBKDF2-derived key.
//
// Wire format: salt(16) || nonce(12) || ciphertext+tag. Salt and nonce
// are freshly random per call, so two encryptions of identical
// plaintext under the same passphrase never produce identical bytes.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := DeriveKey(passphrase, salt)
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+len(plaintext)+gcmTagSize)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt. Any failure - wrong key,
// truncation, bit flips - surfaces as the one opaque ErrDecryptionFailed.
func Decrypt(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < headerSize+gcmTagSize {
		return nil, ErrDecryptionFailed
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize:headerSize]
	ciphertext := blob[headerSize:]

	key := DeriveKey(passphrase, salt)
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ComputeIntegrityHash returns the SHA-256 hex digest of raw evidence
// bytes (pre-encryption).
func ComputeIntegrityHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return aead, nil
}
