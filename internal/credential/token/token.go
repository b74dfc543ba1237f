// Package token decodes the claims segment of compact serialized credential
// tokens. The sandbox returns signed tokens whose payload we need for
// reconciliation, but signature verification is owned by the wallet, not by
// this gateway, so decoding is deliberately unverified.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// DecodePayload extracts the second dot-separated segment of a compact token
// and parses it as a JSON object. It accepts tokens with a missing signature
// segment (two segments only) because some sandbox environments return them
// that way.
//
// Returns nil for anything that is not structurally a token: fewer than two
// segments, malformed base64url, or a payload that is not a JSON object.
// Never panics.
func DecodePayload(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil
	}

	payload := strings.ReplaceAll(parts[1], "-", "+")
	payload = strings.ReplaceAll(payload, "_", "/")
	if rem := len(payload) % 4; rem != 0 {
		payload += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}

	var claims map[string]any
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil
	}
	return claims
}
