// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// evidence_cmd.go - encrypted evidence storage and retrieval.
//
// Command: evidence [subcommand]
//
// Subcommands:
//   store <finding-id> <file>   Encrypt and store an evidence file
//   get <finding-id>            Decrypt stored evidence
//
// The vault key comes from PGO_VAULT_KEY. When it is unset and stdin
// is a terminal, the passphrase is prompted once (never echoed, never
// stored).
//
// Examples:
//   pgo evidence store f-1 screenshot.png
//   pgo evidence store f-1 reply.eml --name broker-reply.eml
//   pgo evidence get f-1 --name broker-reply.eml --output reply.eml
//   pgo evidence get f-1 --hash 9f86d081884c7d65...
package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/privacyguard/pgo/internal/model"
	"github.com/privacyguard/pgo/internal/vault"
)

// HandleEvidence routes the evidence subcommands.
func HandleEvidence(args Args) int {
	if len(args.Raw) < 1 {
		return fail(fmt.Errorf("usage: pgo evidence <store|get> ..."))
	}

	switch args.Raw[0] {
	case "store":
		return handleEvidenceStore(args)
	case "get":
		return handleEvidenceGet(args)
	default:
		return fail(fmt.Errorf("unknown evidence subcommand %q (store, get)", args.Raw[0]))
	}
}

func handleEvidenceStore(args Args) int {
	if len(args.Raw) < 3 {
		return fail(fmt.Errorf("usage: pgo evidence store <finding-id> <file> [--name NAME] [--no-ledger]"))
	}
	findingID, sourcePath := args.Raw[1], args.Raw[2]

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	// The finding must exist before evidence is accepted for it.
	finding, err := env.findings.Get(findingID)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fail(fmt.Errorf("failed to read evidence file: %w", err))
	}

	passphrase, err := vaultPassphrase()
	if err != nil {
		return fail(err)
	}

	receipt, err := vault.StoreEvidenceWithKey(
		env.settings.VaultDir, finding.FindingID, args.Options["name"], data, passphrase, env.logger)
	if err != nil {
		return fail(err)
	}

	// Record the integrity hash in the ledger notes channel so it can
	// be checked later, independent of the vault key. The event keeps
	// the finding in its current status: an evidence attachment is an
	// observation, not a lifecycle move.
	if args.Options["no-ledger"] != "true" {
		observation := model.TransitionEvent{
			FindingID:  finding.FindingID,
			FromStatus: finding.Status,
			ToStatus:   finding.Status,
			AtUTC:      model.NowUTC(),
		}
		note := fmt.Sprintf("Evidence stored: sha256=%s", receipt.IntegrityHash)
		if _, err := env.ledger.Append(observation, note); err != nil {
			return fail(err)
		}
	}

	if args.JSON {
		return exitJSON(receipt)
	}
	fmt.Printf("Stored evidence for %s\n", receipt.FindingID)
	fmt.Printf("  integrity: %s\n", receipt.IntegrityHash)
	fmt.Printf("  path:      %s\n", receipt.Path)
	return 0
}

func handleEvidenceGet(args Args) int {
	if len(args.Raw) < 2 {
		return fail(fmt.Errorf("usage: pgo evidence get <finding-id> [--name NAME] [--hash HEX] [--output F]"))
	}
	findingID := args.Raw[1]

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	passphrase, err := vaultPassphrase()
	if err != nil {
		return fail(err)
	}

	data, err := vault.RetrieveEvidenceWithKey(
		env.settings.VaultDir, findingID, args.Options["name"], args.Options["hash"], passphrase)
	if err != nil {
		return fail(err)
	}

	if out := args.Options["output"]; out != "" {
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return fail(err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
		return 0
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return fail(err)
	}
	return 0
}

// vaultPassphrase resolves the vault key: environment first, then an
// interactive prompt when stdin is a terminal. A missing key in a
// non-interactive run stays a typed, recoverable error.
func vaultPassphrase() (string, error) {
	passphrase, err := vault.KeyFromEnv()
	if err == nil {
		return passphrase, nil
	}
	if !errors.Is(err, vault.ErrKeyMissing) {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Vault passphrase: ")
	raw, readErr := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if readErr != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", readErr)
	}
	if len(raw) == 0 {
		return "", vault.ErrKeyMissing
	}
	return string(raw), nil
}
