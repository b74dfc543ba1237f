// Package status maps the authority's free-form status vocabulary onto a
// small canonical lifecycle. Real responses are inconsistent across sandbox
// versions, so classification is an explicit, order-sensitive substring rule
// table rather than a strict enum.
package status

import "strings"

// Tone tags a status description for display emphasis.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	TonePending Tone = "pending"
	ToneInfo    Tone = "info"
	ToneMuted   Tone = "muted"
)

// Description is the canonical classification of a remote status string.
type Description struct {
	Normalized string `json:"normalized"`
	Text       string `json:"text"`
	Tone       Tone   `json:"tone"`
	Collected  bool   `json:"collected"`
	Revoked    bool   `json:"revoked"`
}

// Normalize trims and uppercases a raw status. Empty input stays empty.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Describe classifies a status string by substring containment. The order is
// a deliberate tie-break: a string that mentions both "issued" and "revoked"
// must classify as revoked. Absent status maps to a distinct "not yet
// reported" state, separate from Issued.
func Describe(raw string) Description {
	normalized := Normalize(raw)

	if normalized == "" {
		return Description{
			Text: "Not yet reported",
			Tone: ToneMuted,
		}
	}

	contains := func(keyword string) bool {
		return strings.Contains(normalized, keyword)
	}

	switch {
	case contains("REVOK"):
		return Description{
			Normalized: normalized,
			Text:       "Revoked (" + normalized + ")",
			Tone:       ToneError,
			Revoked:    true,
		}
	case contains("ACCEPT") || contains("COLLECT") || contains("ACTIVE"):
		return Description{
			Normalized: normalized,
			Text:       "Collected (" + normalized + ")",
			Tone:       ToneSuccess,
			Collected:  true,
		}
	case contains("PEND") || contains("WAIT"):
		return Description{
			Normalized: normalized,
			Text:       "Pending (" + normalized + ")",
			Tone:       TonePending,
		}
	case contains("ISSUED") || contains("READY"):
		return Description{
			Normalized: normalized,
			Text:       "Issued (" + normalized + ")",
			Tone:       ToneInfo,
		}
	}

	return Description{
		Normalized: normalized,
		Text:       normalized,
		Tone:       ToneInfo,
	}
}

// IsCollected reports whether a status classifies as a collected-type state.
func IsCollected(raw string) bool {
	return Describe(raw).Collected
}

// IsRevoked reports whether a status classifies as revoked.
func IsRevoked(raw string) bool {
	return Describe(raw).Revoked
}
