// Package cid canonicalizes credential identifiers. The authority is
// inconsistent about what it returns: sometimes the bare identifier,
// sometimes a quoted one, sometimes the full credential URL. Everything that
// stores or compares a CID goes through Normalize first.
package cid

import (
	"net/url"
	"regexp"
	"strings"
)

var apiCredentialPrefix = regexp.MustCompile(`^.*/api/credential/`)

// Normalize trims the input, strips one layer of surrounding quote
// characters, drops any ".../api/credential/" URL prefix, and removes
// trailing slashes. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := stripQuotes(strings.TrimSpace(raw))
	s = apiCredentialPrefix.ReplaceAllString(s, "")
	return strings.TrimRight(s, "/")
}

// FromJTI derives a CID from a token's unique-identifier claim. The claim is
// often a full URL ending in the CID; when it does not parse as a URL the
// last path-like segment is used instead. The result always passes through
// Normalize. Total: never fails on non-URL input.
func FromJTI(jti string) string {
	raw := strings.TrimSpace(jti)
	if raw == "" {
		return ""
	}
	stripped := stripQuotes(raw)

	if u, err := url.Parse(stripped); err == nil && u.IsAbs() {
		if last := lastSegment(u.Path); last != "" {
			return Normalize(last)
		}
		return Normalize(stripped)
	}

	if last := lastSegment(stripped); last != "" {
		return Normalize(last)
	}
	return Normalize(stripped)
}

// lastSegment returns the final non-empty "/"-separated segment.
func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// stripQuotes removes runs of double quotes, then single quotes, from both
// ends. One layer only: a CID that legitimately contains quotes inside is
// left alone.
func stripQuotes(s string) string {
	s = strings.TrimLeft(s, `"`)
	s = strings.TrimRight(s, `"`)
	s = strings.TrimLeft(s, `'`)
	s = strings.TrimRight(s, `'`)
	return s
}
