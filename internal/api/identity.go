// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentity trims and NFKC-normalizes a login identity so that
// visually identical input sends identical bytes. Identities that look like
// e-mail addresses are also case-folded.
func NormalizeIdentity(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	if strings.Contains(s, "@") {
		return NormalizeEmail(s)
	}
	return s
}

// NormalizeEmail trims, NFKC-normalizes and case-folds an address.
func NormalizeEmail(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
