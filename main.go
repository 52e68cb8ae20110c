// pgo - local-first tracker for personal-data-broker opt-out findings.
//
// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/privacyguard/pgo/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdInit:
		os.Exit(cli.HandleInit(args))
	case cli.CmdStatus:
		os.Exit(cli.HandleStatus(args))
	case cli.CmdAdd:
		os.Exit(cli.HandleAdd(args))
	case cli.CmdList:
		os.Exit(cli.HandleList(args))
	case cli.CmdShow:
		os.Exit(cli.HandleShow(args))
	case cli.CmdTransition:
		os.Exit(cli.HandleTransition(args))
	case cli.CmdAudit:
		os.Exit(cli.HandleAudit(args))
	case cli.CmdEvidence:
		os.Exit(cli.HandleEvidence(args))
	case cli.CmdToken:
		os.Exit(cli.HandleToken(args))
	case cli.CmdManifest:
		os.Exit(cli.HandleManifest(args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(1)
	}
}
