// Package projectkey derives short uppercase project keys from names and
// produces the suffixed candidates used when a key is already taken.
package projectkey

import (
	"strconv"
	"strings"
)

// Fallback is used when a name contains no letters or digits.
const Fallback = "PRJ"

// MaxLen is the length of a derived key.
const MaxLen = 4

// MaxKeyLen is the longest key Valid accepts.
const MaxKeyLen = 20

// MaxAttempts bounds the collision retry: KEY, KEY2, KEY3.
const MaxAttempts = 3

// Derive builds a key from a project name: ASCII letters and digits only,
// first MaxLen of them, uppercased. "Demo App" becomes "DEMO".
func Derive(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == MaxLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return Fallback
	}
	return strings.ToUpper(b.String())
}

// Normalize trims and uppercases an explicit key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Resolve returns the normalized key if one was given, otherwise the key
// derived from name.
func Resolve(key, name string) string {
	if k := Normalize(key); k != "" {
		return k
	}
	return Derive(name)
}

// Candidate returns the key to try on the given attempt (0-based):
// attempt 0 is base itself, attempt n is base followed by n+1. The base
// is shortened when needed so the result never exceeds MaxKeyLen.
func Candidate(base string, attempt int) string {
	if attempt <= 0 {
		return base
	}
	suffix := strconv.Itoa(attempt + 1)
	if len(base)+len(suffix) > MaxKeyLen {
		base = base[:MaxKeyLen-len(suffix)]
	}
	return base + suffix
}

// Valid reports whether key is non-empty and made only of A-Z and 0-9.
func Valid(key string) bool {
	if key == "" || len(key) > MaxKeyLen {
		return false
	}
	for _, r := range key {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
