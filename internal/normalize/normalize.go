// Package normalize folds user-supplied identifiers into canonical form.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Sector folds a sector/category label for exact case-insensitive
// comparison. Matching compares folded keys, never patterns built from
// user input.
func Sector(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
