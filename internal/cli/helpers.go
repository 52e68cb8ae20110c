// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - shared environment setup for command handlers.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/privacyguard/pgo/internal/audit"
	"github.com/privacyguard/pgo/internal/config"
	"github.com/privacyguard/pgo/internal/logging"
	"github.com/privacyguard/pgo/internal/storage"
)

// appEnv bundles the wired-up collaborators every handler needs. The
// handlers stay thin adapters; all invariants live in the packages
// this wires together.
type appEnv struct {
	settings config.Settings
	logger   *slog.Logger
	db       *storage.DB
	findings *storage.FindingsRepository
	ledger   *audit.Ledger
}

// openEnv loads settings, configures logging, and opens the database.
func openEnv() (*appEnv, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, settings.LogJSON, settings.LogLevel)

	if err := settings.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := storage.Open(settings.DBPath, logger)
	if err != nil {
		return nil, err
	}

	return &appEnv{
		settings: settings,
		logger:   logger,
		db:       db,
		findings: storage.NewFindingsRepository(db),
		ledger:   audit.NewLedger(storage.NewEventStore(db), logger),
	}, nil
}

func (e *appEnv) close() {
	_ = e.db.Close()
}

// fail prints an error and returns the exit code for main.
func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
