// Package revocation computes the authority paths that revoke a credential.
// Two forms exist for every CID: the internal path, which carries the sandbox
// routing prefix the proxy needs, and the display path, which never does —
// the prefix is a routing concern operators should not see.
package revocation

import (
	"regexp"
	"strings"

	"vc-gateway/internal/credential/cid"
)

var duplicateSlashes = regexp.MustCompile(`/{2,}`)

// Input carries everything needed to compute revocation details, plus the
// previously stored values used as fallbacks when a component cannot be
// recomputed (e.g. the CID went missing).
type Input struct {
	CID               string
	RoutingPrefix     string
	BaseURL           string
	StoredPath        string
	StoredURL         string
	StoredDisplayPath string
	StoredDisplayURL  string
}

// Details is the computed set of revocation endpoints for one credential.
type Details struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	DisplayPath string `json:"displayPath"`
	DisplayURL  string `json:"displayUrl"`
}

// NormalizePrefix canonicalizes a routing prefix to either "" or a single
// leading-slash, no-trailing-slash form.
func NormalizePrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// StripPrefixSuffix removes the routing prefix from the end of a base URL if
// present, so display URLs point at the authority rather than the proxy
// route.
func StripPrefixSuffix(baseURL, prefix string) string {
	if baseURL == "" || prefix == "" {
		return baseURL
	}
	normalized := duplicateSlashes.ReplaceAllString(strings.TrimSpace(prefix), "/")
	normalized = strings.TrimRight(normalized, "/")
	if normalized == "" {
		return baseURL
	}
	if strings.HasSuffix(baseURL, normalized) {
		return baseURL[:len(baseURL)-len(normalized)]
	}
	return baseURL
}

// Compute derives the internal and display revocation endpoints for a CID.
//
// Any component that cannot be computed falls back to its stored value, so a
// record's revoke affordance degrades gracefully instead of disappearing.
// Idempotent: feeding the output back as the Stored* fields reproduces it.
func Compute(in Input) Details {
	normalizedCID := cid.Normalize(in.CID)
	normalizedPrefix := NormalizePrefix(in.RoutingPrefix)

	var path string
	if normalizedCID != "" {
		path = duplicateSlashes.ReplaceAllString(
			normalizedPrefix+"/api/credential/"+normalizedCID+"/revocation", "/")
	}

	var computedURL string
	if path != "" && in.BaseURL != "" {
		computedURL = joinURL(in.BaseURL, path)
	}

	var displayPath string
	if normalizedCID != "" {
		displayPath = "/api/credential/" + normalizedCID + "/revocation"
	}

	displayBase := StripPrefixSuffix(in.BaseURL, normalizedPrefix)
	var displayURL string
	if displayPath != "" && displayBase != "" {
		displayURL = joinURL(displayBase, displayPath)
	}

	// Display fields never fall back to the internal values: those carry the
	// routing prefix, and a prefixed display path is worse than none.
	return Details{
		Path:        firstNonEmpty(path, in.StoredPath),
		URL:         firstNonEmpty(computedURL, in.StoredURL),
		DisplayPath: firstNonEmpty(displayPath, in.StoredDisplayPath),
		DisplayURL:  firstNonEmpty(displayURL, in.StoredDisplayURL),
	}
}

func joinURL(base, path string) string {
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
