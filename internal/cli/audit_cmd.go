// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit_cmd.go - ledger verification and export.
//
// Command: audit [subcommand]
//
// Subcommands:
//   verify              Replay the full hash chain and report
//   export              Export the ledger as JSON
//
// Examples:
//   pgo audit verify
//   pgo audit export
//   pgo audit export --output ledger.json --sign
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/privacyguard/pgo/internal/audit"
	"github.com/privacyguard/pgo/internal/util"
)

// HandleAudit routes the audit subcommands.
func HandleAudit(args Args) int {
	sub := "verify"
	if len(args.Raw) > 0 {
		sub = args.Raw[0]
	}

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	switch sub {
	case "verify":
		checked, err := env.ledger.Verify()
		if err != nil {
			var chainErr *audit.ChainError
			if errors.As(err, &chainErr) {
				// An integrity incident, not a usage error: the ledger
				// must be treated as compromised until investigated.
				fmt.Fprintf(os.Stderr, "INTEGRITY FAILURE: %v\n", chainErr)
				fmt.Fprintf(os.Stderr, "Entries verified before failure: %d\n", checked)
				return 2
			}
			return fail(err)
		}
		fmt.Printf("Audit chain OK: %d entries verified\n", checked)
		return 0

	case "export":
		entries, err := env.ledger.Export()
		if err != nil {
			return fail(err)
		}
		blob, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fail(err)
		}

		if args.Options["sign"] == "true" {
			sig, ok := audit.SignExport(blob, "")
			if !ok {
				fmt.Fprintln(os.Stderr, "Warning: no HMAC key configured, export is unsigned")
			} else {
				fmt.Fprintf(os.Stderr, "HMAC-SHA256: %s\n", sig)
			}
		}

		if out := args.Options["output"]; out != "" {
			if err := util.AtomicWriteFile(out, blob, 0o644); err != nil {
				return fail(err)
			}
			fmt.Printf("Exported %d entries to %s\n", len(entries), out)
			return 0
		}
		fmt.Println(string(blob))
		return 0

	default:
		return fail(fmt.Errorf("unknown audit subcommand %q (verify, export)", sub))
	}
}
