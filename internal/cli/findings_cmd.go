// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// findings_cmd.go - finding lifecycle commands.
//
// Command: init                      Initialise a project
// Command: status                    Findings summary + ledger head
// Command: add                       Register a finding (discovered)
// Command: list / show               Inspect findings
// Command: transition <id> <status>  Move a finding through its lifecycle
//
// Examples:
//   pgo add --broker "BeenVerified" --url https://beenverified.com
//   pgo add --id f-1 --broker Spokeo
//   pgo transition f-1 confirmed --notes "Matched my street address"
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/privacyguard/pgo/internal/config"
	"github.com/privacyguard/pgo/internal/logging"
	"github.com/privacyguard/pgo/internal/model"
	"github.com/privacyguard/pgo/internal/storage"
)

// defaultMarkerContent seeds a new pgo.toml with the documented knobs.
const defaultMarkerContent = `# pgo project configuration
# manifest_path = "manifests/brokers_manifest.yaml"
# vault_dir = "vault"
# data_dir = "data"
# log_json = true
# log_level = "info"
`

// HandleInit initialises a pgo project in the current directory:
// marker file, vault/ and data/ directories, and the database schema.
func HandleInit(args Args) int {
	cwd, err := os.Getwd()
	if err != nil {
		return fail(err)
	}

	markerPath := filepath.Join(cwd, config.MarkerFile)
	if _, err := os.Stat(markerPath); os.IsNotExist(err) {
		if err := os.WriteFile(markerPath, []byte(defaultMarkerContent), 0o644); err != nil {
			return fail(fmt.Errorf("failed to write %s: %w", config.MarkerFile, err))
		}
		fmt.Printf("Created %s\n", config.MarkerFile)
	}

	settings, err := config.LoadFromRoot(cwd)
	if err != nil {
		return fail(err)
	}
	if err := settings.EnsureDirs(); err != nil {
		return fail(err)
	}

	logger := logging.New(os.Stderr, settings.LogJSON, settings.LogLevel)
	db, err := storage.Open(settings.DBPath, logger)
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	fmt.Printf("Initialised pgo project at %s\n", settings.RepoRoot)
	fmt.Printf("  vault:    %s\n", settings.VaultDir)
	fmt.Printf("  database: %s\n", settings.DBPath)
	return 0
}

// HandleStatus prints a findings summary and the ledger head.
func HandleStatus(args Args) int {
	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	findings, err := env.findings.List()
	if err != nil {
		return fail(err)
	}
	entries, err := env.ledger.Export()
	if err != nil {
		return fail(err)
	}

	counts := make(map[model.FindingStatus]int)
	for _, f := range findings {
		counts[f.Status]++
	}

	if args.JSON {
		head := ""
		if len(entries) > 0 {
			head = entries[len(entries)-1].EntryHash
		}
		return exitJSON(map[string]any{
			"root":          env.settings.RepoRoot,
			"findings":      len(findings),
			"by_status":     counts,
			"ledger_events": len(entries),
			"ledger_head":   head,
		})
	}

	fmt.Printf("Project: %s\n", env.settings.RepoRoot)
	fmt.Printf("Findings: %d\n", len(findings))
	for _, status := range model.AllStatuses {
		if counts[status] > 0 {
			fmt.Printf("  %-11s %d\n", status, counts[status])
		}
	}
	fmt.Printf("Ledger events: %d\n", len(entries))
	if len(entries) > 0 {
		fmt.Printf("Ledger head: %s\n", entries[len(entries)-1].EntryHash)
	}
	return 0
}

// HandleAdd registers a new finding and seeds the ledger with its
// creation record.
func HandleAdd(args Args) int {
	broker := args.Options["broker"]
	if broker == "" && len(args.Raw) > 0 {
		broker = args.Raw[0]
	}
	if broker == "" {
		return fail(fmt.Errorf("usage: pgo add --broker NAME [--id ID] [--url URL] [--notes TEXT]"))
	}

	findingID := args.Options["id"]
	if findingID == "" {
		findingID = "f-" + uuid.NewString()[:8]
	}

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	finding, creation, err := env.findings.Create(findingID, broker, args.Options["url"])
	if err != nil {
		return fail(err)
	}

	notes := args.Options["notes"]
	if notes == "" {
		notes = "Finding created"
	}
	entryHash, err := env.ledger.Append(creation, notes)
	if err != nil {
		return fail(err)
	}

	if args.JSON {
		return exitJSON(map[string]any{"finding": finding, "entry_hash": entryHash})
	}
	fmt.Printf("Created finding %s (%s) [%s]\n", finding.FindingID, finding.BrokerName, finding.Status)
	fmt.Printf("Ledger entry: %s\n", entryHash)
	return 0
}

// HandleList prints all findings.
func HandleList(args Args) int {
	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	findings, err := env.findings.List()
	if err != nil {
		return fail(err)
	}

	if args.JSON {
		return exitJSON(findings)
	}
	if len(findings) == 0 {
		fmt.Println("No findings. Use 'pgo add' to register one.")
		return 0
	}
	for _, f := range findings {
		url := f.URL
		if url == "" {
			url = "-"
		}
		fmt.Printf("%-20s %-11s %-24s %s\n", f.FindingID, f.Status, f.BrokerName, url)
	}
	return 0
}

// HandleShow prints one finding.
func HandleShow(args Args) int {
	if len(args.Raw) < 1 {
		return fail(fmt.Errorf("usage: pgo show <finding-id>"))
	}

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	finding, err := env.findings.Get(args.Raw[0])
	if err != nil {
		return fail(err)
	}

	if args.JSON {
		return exitJSON(finding)
	}
	fmt.Printf("Finding:  %s\n", finding.FindingID)
	fmt.Printf("Broker:   %s\n", finding.BrokerName)
	if finding.URL != "" {
		fmt.Printf("URL:      %s\n", finding.URL)
	}
	fmt.Printf("Status:   %s\n", finding.Status)
	fmt.Printf("Created:  %s\n", finding.CreatedUTC)
	fmt.Printf("Updated:  %s\n", finding.UpdatedUTC)
	return 0
}

// HandleTransition moves a finding to a new status and appends the
// transition to the ledger as one logical operation.
func HandleTransition(args Args) int {
	if len(args.Raw) < 2 {
		return fail(fmt.Errorf("usage: pgo transition <finding-id> <status> [--notes TEXT]"))
	}
	to, ok := model.ParseStatus(args.Raw[1])
	if !ok {
		return fail(fmt.Errorf("unknown status %q (valid: %v)", args.Raw[1], model.AllStatuses))
	}

	env, err := openEnv()
	if err != nil {
		return fail(err)
	}
	defer env.close()

	event, err := env.findings.Transition(args.Raw[0], to)
	if err != nil {
		return fail(err)
	}
	entryHash, err := env.ledger.Append(event, args.Options["notes"])
	if err != nil {
		return fail(err)
	}

	if args.JSON {
		return exitJSON(map[string]any{"event": event, "entry_hash": entryHash})
	}
	fmt.Printf("%s: %s -> %s\n", event.FindingID, event.FromStatus, event.ToStatus)
	fmt.Printf("Ledger entry: %s\n", entryHash)
	return 0
}

func exitJSON(v any) int {
	if err := printJSON(v); err != nil {
		return fail(err)
	}
	return 0
}
