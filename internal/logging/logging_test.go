// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "info")

	logger.Info("finding_created", "finding_id", "f-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "finding_created", record["msg"])
	require.Equal(t, "f-1", record["finding_id"])
}

func TestLoggerRedactsPIIInAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "info")

	logger.Info("note_added", "notes", "reach me at jane@example.com")

	out := buf.String()
	require.NotContains(t, out, "jane@example.com")
	require.Contains(t, out, "[REDACTED-EMAIL]")
}

func TestLoggerSuppressesSecretKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "info")

	logger.Info("vault_opened", "passphrase", "hunter2", "token", "abc123")

	out := buf.String()
	require.NotContains(t, out, "hunter2")
	require.NotContains(t, out, "abc123")
	require.Contains(t, out, "[SUPPRESSED]")
}

func TestLoggerRedactsThroughWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "info").With("contact", "call 555-123-4567")

	logger.Info("hello")

	require.NotContains(t, buf.String(), "555-123-4567")
}

func TestLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "warn")

	logger.Info("dropped")
	require.Empty(t, buf.String())

	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestLoggerTextMode(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "debug")

	logger.Debug("dev_note", "notes", "ssn 123-45-6789")

	out := buf.String()
	require.Contains(t, out, "dev_note")
	require.NotContains(t, out, "123-45-6789")
}
