// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// manifest_cmd.go - broker manifest validation.
//
// Command: manifest [subcommand]
//
// Subcommands:
//   validate            Parse and validate the broker manifest
//   watch               Validate continuously as the file changes
//
// Examples:
//   pgo manifest validate
//   pgo manifest validate --manifest ./manifests/brokers_manifest.yaml
//   pgo manifest watch
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/privacyguard/pgo/internal/config"
	"github.com/privacyguard/pgo/internal/logging"
	"github.com/privacyguard/pgo/internal/manifest"
)

// HandleManifest routes the manifest subcommands.
func HandleManifest(args Args) int {
	sub := "validate"
	if len(args.Raw) > 0 {
		sub = args.Raw[0]
	}

	// An explicit --manifest works even outside a project root.
	path := args.Options["manifest"]
	settings, err := config.Load()
	if err != nil {
		if path == "" {
			return fail(err)
		}
		settings = config.Settings{LogJSON: true, LogLevel: "info"}
	}
	if path == "" {
		path = settings.ManifestPath
	}

	switch sub {
	case "validate":
		brokers, err := manifest.Load(path)
		if err != nil {
			return fail(err)
		}
		if args.JSON {
			return exitJSON(map[string]any{"path": path, "brokers": len(brokers)})
		}
		fmt.Printf("Manifest OK: %d brokers (%s)\n", len(brokers), path)
		return 0

	case "watch":
		logger := logging.New(os.Stderr, settings.LogJSON, settings.LogLevel)
		watcher, err := manifest.NewWatcher(path, func(brokers []manifest.BrokerTarget, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "manifest invalid: %v\n", err)
				return
			}
			fmt.Printf("manifest OK: %d brokers\n", len(brokers))
		}, logger)
		if err != nil {
			return fail(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		fmt.Printf("Watching %s (Ctrl-C to stop)\n", path)
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return fail(err)
		}
		return 0

	default:
		return fail(fmt.Errorf("unknown manifest subcommand %q (validate, watch)", sub))
	}
}
