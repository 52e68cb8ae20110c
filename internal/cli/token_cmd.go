// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// token_cmd.go - keyed tokenisation of identifiers.
//
// Command: token <value>
//
// Produces the hex HMAC-SHA256 token of a value under PGO_TOKEN_KEY
// (falling back to PGO_VAULT_KEY). Use this to reference an email or
// phone number in notes and exports without storing the clear text.
//
// Examples:
//   pgo token "jane.doe@example.com"
package cli

import (
	"fmt"

	"github.com/privacyguard/pgo/internal/pii"
)

// HandleToken tokenises a single value.
func HandleToken(args Args) int {
	if len(args.Raw) < 1 {
		return fail(fmt.Errorf("usage: pgo token <value>"))
	}

	token, err := pii.Tokenize(args.Raw[0], args.Options["key"])
	if err != nil {
		return fail(err)
	}

	if args.JSON {
		return exitJSON(map[string]string{"token": token})
	}
	fmt.Println(token)
	return 0
}
