// Package validate holds the pure input predicates shared by the registry and
// the payment flow. No function here performs I/O.
package validate

import (
	"regexp"
	"strings"
)

const (
	// UsernameMinLength is the shortest accepted username.
	UsernameMinLength = 3
	// UsernameMaxLength is the longest accepted username.
	UsernameMaxLength = 30
)

var (
	addressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	usernameAllowed = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// Username checks a candidate handle against the registry policy: 3 to 30
// characters drawn from [a-z0-9_-]. Callers may case-fold before validating,
// but invalid characters are always rejected here, never silently accepted.
func Username(candidate string) (bool, string) {
	if candidate == "" {
		return false, "username is required"
	}
	if len(candidate) < UsernameMinLength {
		return false, "username must be at least 3 characters"
	}
	if len(candidate) > UsernameMaxLength {
		return false, "username must be at most 30 characters"
	}
	if !usernameAllowed.MatchString(candidate) {
		return false, "username may only contain lowercase letters, digits, hyphen and underscore"
	}
	return true, ""
}

// IsValidAddress reports whether s is 0x followed by exactly 40 hex characters.
// Purely syntactic; no checksum validation. Also used to decide whether
// recipient input is a raw address or a username candidate.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeAddress folds an address to lowercase for storage and comparison.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}
