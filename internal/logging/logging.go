// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures structured logging for PGO.
//
// Output is JSON by default for machine consumption, with a text
// handler available for development. Every string attribute is
// scrubbed through the PII guard before rendering, and attributes
// whose keys look like secrets are suppressed entirely - accidental
// PII or key material in a log call is caught even when the caller
// forgot to sanitise.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/privacyguard/pgo/internal/pii"
)

// Keys whose values never appear in logs, even redacted.
var suppressedKeys = map[string]bool{
	"key":        true,
	"secret":     true,
	"password":   true,
	"token":      true,
	"credential": true,
	"passphrase": true,
}

// New builds the process logger writing to w.
func New(w io.Writer, jsonOutput bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var inner slog.Handler
	if jsonOutput {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(&redactingHandler{inner: inner})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactingHandler scrubs attribute values through the PII guard
// before delegating to the wrapped handler.
type redactingHandler struct {
	inner slog.Handler
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	scrubbed := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		scrubbed.AddAttrs(scrubAttr(a))
		return true
	})
	return h.inner.Handle(ctx, scrubbed)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		scrubbed = append(scrubbed, scrubAttr(a))
	}
	return &redactingHandler{inner: h.inner.WithAttrs(scrubbed)}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name)}
}

func scrubAttr(a slog.Attr) slog.Attr {
	if suppressedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[SUPPRESSED]")
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, pii.Redact(a.Value.String()))
	}
	return a
}
