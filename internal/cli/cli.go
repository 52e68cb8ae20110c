// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for pgo.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdInit
	CmdStatus
	CmdAdd
	CmdList
	CmdShow
	CmdTransition
	CmdAudit
	CmdEvidence
	CmdToken
	CmdManifest
	CmdVersion
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON bool

	// Positional args remaining after flag parsing
	Raw []string

	// Named options (e.g. --notes, --output)
	Options map[string]string
}

const usageText = `pgo - local-first data-broker opt-out tracker

pgo tracks the lifecycle of discovered broker listings through a
tamper-evident, hash-chained audit ledger, and stores opt-out evidence
encrypted at rest.

Usage:
  pgo init                        Initialise a project in the current directory
  pgo status                      Show findings summary and ledger head
  pgo add --broker NAME [flags]   Register a new finding (discovered)
  pgo list                        List all findings
  pgo show <finding-id>           Show one finding
  pgo transition <finding-id> <status> [--notes TEXT]
                                  Move a finding to a new status
  pgo audit verify                Verify the full hash chain
  pgo audit export [--output F] [--sign]
                                  Export the ledger as JSON
  pgo evidence store <finding-id> <file> [--name NAME]
                                  Encrypt and store evidence
  pgo evidence get <finding-id> [--name NAME] [--hash HEX] [--output F]
                                  Decrypt stored evidence
  pgo token <value>               HMAC-tokenise a value (PGO_TOKEN_KEY)
  pgo manifest validate           Validate the broker manifest
  pgo version                     Show version

Environment:
  PGO_VAULT_KEY       Vault encryption passphrase (required for evidence)
  PGO_TOKEN_KEY       Tokenisation key (falls back to PGO_VAULT_KEY)
  PGO_AUDIT_HMAC_KEY  Optional export-signing key
  PGO_ROOT            Project root override (skips pgo.toml discovery)
  PGO_LOG_JSON        true/false - JSON or text logs (default true)

Statuses:
  discovered -> confirmed -> submitted -> pending|verified
  pending -> verified|resurfaced, verified -> resurfaced,
  resurfaced -> submitted (opt-out retry)
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) (Command, Args) {
	args := Args{Options: make(map[string]string)}
	if len(argv) == 0 {
		return CmdHelp, args
	}

	cmd := CmdHelp
	switch argv[0] {
	case "init":
		cmd = CmdInit
	case "status", "s":
		cmd = CmdStatus
	case "add":
		cmd = CmdAdd
	case "list", "ls":
		cmd = CmdList
	case "show":
		cmd = CmdShow
	case "transition", "move":
		cmd = CmdTransition
	case "audit":
		cmd = CmdAudit
	case "evidence":
		cmd = CmdEvidence
	case "token":
		cmd = CmdToken
	case "manifest":
		cmd = CmdManifest
	case "version", "--version", "-v":
		cmd = CmdVersion
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", argv[0])
		return CmdHelp, args
	}

	// Flags and positionals after the command word.
	rest := argv[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				args.Options[name[:eq]] = name[eq+1:]
			} else if i+1 < len(rest) && !strings.HasPrefix(rest[i+1], "--") {
				args.Options[name] = rest[i+1]
				i++
			} else {
				args.Options[name] = "true"
			}
		default:
			args.Raw = append(args.Raw, arg)
		}
	}
	return cmd, args
}

// PrintUsage prints the top-level help text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("pgo %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
