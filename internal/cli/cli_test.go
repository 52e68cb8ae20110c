// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// COMMAND ROUTING
// =============================================================================

func TestParseCommandWords(t *testing.T) {
	cases := []struct {
		argv []string
		want Command
	}{
		{[]string{}, CmdHelp},
		{[]string{"help"}, CmdHelp},
		{[]string{"--help"}, CmdHelp},
		{[]string{"init"}, CmdInit},
		{[]string{"status"}, CmdStatus},
		{[]string{"s"}, CmdStatus},
		{[]string{"add"}, CmdAdd},
		{[]string{"list"}, CmdList},
		{[]string{"ls"}, CmdList},
		{[]string{"show", "f-1"}, CmdShow},
		{[]string{"transition", "f-1", "confirmed"}, CmdTransition},
		{[]string{"move", "f-1", "confirmed"}, CmdTransition},
		{[]string{"audit", "verify"}, CmdAudit},
		{[]string{"evidence", "store"}, CmdEvidence},
		{[]string{"token", "value"}, CmdToken},
		{[]string{"manifest", "validate"}, CmdManifest},
		{[]string{"version"}, CmdVersion},
		{[]string{"-v"}, CmdVersion},
		{[]string{"frobnicate"}, CmdHelp},
	}
	for _, tc := range cases {
		cmd, _ := parseArgs(tc.argv)
		require.Equal(t, tc.want, cmd, "argv %v", tc.argv)
	}
}

// =============================================================================
// FLAGS AND POSITIONALS
// =============================================================================

func TestParsePositionals(t *testing.T) {
	_, args := parseArgs([]string{"transition", "f-1", "confirmed"})
	require.Equal(t, []string{"f-1", "confirmed"}, args.Raw)
}

func TestParseJSONFlag(t *testing.T) {
	_, args := parseArgs([]string{"list", "--json"})
	require.True(t, args.JSON)

	_, args = parseArgs([]string{"list"})
	require.False(t, args.JSON)
}

func TestParseOptionWithSeparateValue(t *testing.T) {
	_, args := parseArgs([]string{"add", "--broker", "Spokeo", "--url", "https://spokeo.com"})
	require.Equal(t, "Spokeo", args.Options["broker"])
	require.Equal(t, "https://spokeo.com", args.Options["url"])
}

func TestParseOptionWithEquals(t *testing.T) {
	_, args := parseArgs([]string{"add", "--broker=Been Verified", "--notes=two words"})
	require.Equal(t, "Been Verified", args.Options["broker"])
	require.Equal(t, "two words", args.Options["notes"])
}

func TestParseBareOptionIsBooleanTrue(t *testing.T) {
	_, args := parseArgs([]string{"audit", "export", "--sign"})
	require.Equal(t, []string{"export"}, args.Raw)
	require.Equal(t, "true", args.Options["sign"])
}

func TestParseOptionFollowedByFlag(t *testing.T) {
	// --sign takes no value because the next token is another flag.
	_, args := parseArgs([]string{"audit", "export", "--sign", "--output", "ledger.json"})
	require.Equal(t, "true", args.Options["sign"])
	require.Equal(t, "ledger.json", args.Options["output"])
}

func TestParseMixedFlagsAndPositionals(t *testing.T) {
	_, args := parseArgs([]string{"evidence", "store", "f-1", "shot.png", "--name", "shot.png", "--json"})
	require.Equal(t, []string{"store", "f-1", "shot.png"}, args.Raw)
	require.Equal(t, "shot.png", args.Options["name"])
	require.True(t, args.JSON)
}
