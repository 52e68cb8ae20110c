// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pii is the inner trust boundary of PGO: every free-text
// field passes through here before touching SQLite, exports, or logs.
//
// Strategies:
//   - Regex-based redaction of common PII patterns (SSNs, emails,
//     phone numbers, card-like digit runs)
//   - Keyed HMAC-SHA256 tokenisation of identifiers before storage
//   - Whitelist validation of externally supplied identifiers and URLs
//
// Redaction is a best-effort defence-in-depth measure, not a
// guarantee. The goal is to catch common accidental PII before it
// reaches storage.
package pii

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxNoteLength is the hard cap applied to free-text notes before
// redaction. Truncation happens FIRST so a pattern can never be split
// into an undetectable fragment by a later cut.
const MaxNoteLength = 4096

// MaxIdentifierLength is the whitelist cap for finding IDs and broker names.
const MaxIdentifierLength = 128

// MaxURLLength is the whitelist cap for broker URLs.
const MaxURLLength = 2048

// TokenKeyEnvVar is the preferred environment variable for the
// tokenisation HMAC key.
const TokenKeyEnvVar = "PGO_TOKEN_KEY"

// VaultKeyEnvVar is the fallback key source shared with the vault.
const VaultKeyEnvVar = "PGO_VAULT_KEY"

// =============================================================================
// ERRORS
// =============================================================================

// ErrMissingKey is returned when tokenisation is requested with no key
// available. Plain hashing is deliberately not offered as a fallback:
// an unkeyed digest of a low-entropy input (phone number, email) falls
// to an offline dictionary attack.
var ErrMissingKey = fmt.Errorf(
	"tokenisation requires a secret key: set %s or %s", TokenKeyEnvVar, VaultKeyEnvVar)

// ValidationError reports an input that failed whitelist validation.
// Always raised before any persistence is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// =============================================================================
// PII PATTERNS
// =============================================================================

// piiPattern couples a redaction kind tag with its detector.
type piiPattern struct {
	kind    string
	pattern *regexp.Regexp
}

// piiPatterns are applied in this fixed order, most specific first, so
// overlapping matches redact deterministically.
var piiPatterns = []piiPattern{
	// US SSN: 123-45-6789 or 123456789
	{"SSN", regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`)},
	// Email addresses
	{"EMAIL", regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z]{2,}\b`)},
	// US phone numbers: (555) 123-4567, 555-123-4567, 5551234567, +1-555-123-4567
	{"PHONE", regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	// Card-like sequences: 13-19 digits with optional separators
	{"CC", regexp.MustCompile(`\b(?:\d[-\s]?){13,19}\b`)},
}

// Whitelist for finding_id / broker_name (alphanumeric plus "_-. ").
var safeIdentifierRe = regexp.MustCompile(`^[A-Za-z0-9_\-. ]{1,128}$`)

// URL whitelist: http/https only, no whitespace, bounded length.
// Go's regexp caps repeat counts at 1000, so {1,2048} is split into
// equivalent consecutive repeats totalling 1..2048.
var safeURLRe = regexp.MustCompile(`^https?://[^\s]{1,1000}[^\s]{0,1000}[^\s]{0,48}$`)

// =============================================================================
// REDACTION
// =============================================================================

// Redact replaces every detected PII substring with a type-tagged
// placeholder of the form [REDACTED-<KIND>].
func Redact(text string) string {
	result := text
	for _, p := range piiPatterns {
		result = p.pattern.ReplaceAllString(result, "[REDACTED-"+p.kind+"]")
	}
	return result
}

// ContainsPII reports whether any PII pattern matches, without mutating.
func ContainsPII(text string) bool {
	for _, p := range piiPatterns {
		if p.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// SanitizeNotes prepares free-text notes for the audit ledger:
// truncate to MaxNoteLength, then redact. The order matters - redacting
// first and truncating after could cut a pattern in half and leave a
// fragment the detector no longer recognises.
func SanitizeNotes(notes string) string {
	runes := []rune(notes)
	if len(runes) > MaxNoteLength {
		notes = string(runes[:MaxNoteLength])
	}
	return Redact(notes)
}

// =============================================================================
// TOKENISATION
// =============================================================================

// Tokenize returns the hex HMAC-SHA256 digest of value under key.
//
// If key is empty the environment is consulted: PGO_TOKEN_KEY first,
// then PGO_VAULT_KEY. With no key available anywhere, ErrMissingKey is
// returned.
func Tokenize(value, key string) (string, error) {
	if key == "" {
		key = strings.TrimSpace(os.Getenv(TokenKeyEnvVar))
	}
	if key == "" {
		key = strings.TrimSpace(os.Getenv(VaultKeyEnvVar))
	}
	if key == "" {
		return "", ErrMissingKey
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// IsMissingKey reports whether err is the missing-tokenisation-key failure.
func IsMissingKey(err error) bool {
	return errors.Is(err, ErrMissingKey)
}

// =============================================================================
// WHITELIST VALIDATION
// =============================================================================

// ValidateFindingID validates and trims a finding ID. This is the
// single choke point finding IDs pass before reaching persistence.
func ValidateFindingID(findingID string) (string, error) {
	return validateIdentifier("finding_id", findingID)
}

// ValidateBrokerName validates and trims a broker name.
func ValidateBrokerName(name string) (string, error) {
	return validateIdentifier("broker_name", name)
}

// ValidateURL validates a broker URL. Empty input is allowed and maps
// to the empty string (the URL field is optional); anything non-empty
// must be http/https and at most MaxURLLength characters.
func ValidateURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", nil
	}
	if !safeURLRe.MatchString(url) {
		return "", &ValidationError{
			Field:  "url",
			Reason: fmt.Sprintf("must be http/https and under %d chars", MaxURLLength),
		}
	}
	return url, nil
}

func validateIdentifier(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if !safeIdentifierRe.MatchString(value) {
		return "", &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("contains invalid characters or is too long (max %d)", MaxIdentifierLength),
		}
	}
	return value, nil
}
