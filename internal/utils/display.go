package utils

import "fmt"

// DefaultDisplayName is the generated display name for a user first seen by principal
func DefaultDisplayName(principal string) string {
	if len(principal) <= 8 {
		return fmt.Sprintf("User %s", principal)
	}
	return fmt.Sprintf("User %s...", principal[:8])
}

// ShortPrincipal formats a principal as "abcdefgh...stuvwxyz" for log lines and listings
func ShortPrincipal(principal string) string {
	if len(principal) > 16 {
		return fmt.Sprintf("%s...%s", principal[:8], principal[len(principal)-8:])
	}
	return principal
}
