package reconcile

import (
	"fmt"
	"strings"
)

// PendingPredicate decides whether a failed authority lookup actually means
// "issued but not collected yet". It returns the match and a human-readable
// hint for the operator. The sandbox signals this state with an
// environment-specific application error code, sometimes structured,
// sometimes embedded in free text, so the predicate is configuration rather
// than a constant.
type PendingPredicate func(status int, detail string, fields map[string]any) (bool, string)

// notCollectedPhrases are free-text fragments observed across sandbox
// versions when the holder has not scanned the credential yet.
var notCollectedPhrases = []string{
	"not yet",
	"not collected",
	"not been collected",
	"not been scanned",
}

// DefaultPendingPredicate matches any of the configured application error
// codes, in structured detail fields or embedded in the detail text, plus
// the known not-yet-collected phrases.
func DefaultPendingPredicate(codes []string) PendingPredicate {
	return func(status int, detail string, fields map[string]any) (bool, string) {
		for _, code := range codes {
			if code == "" {
				continue
			}
			if strings.Contains(detail, code) {
				return true, pendingHint(code, detail)
			}
			for _, key := range []string{"code", "errorCode", "error_code"} {
				if v, ok := fields[key]; ok {
					if strings.Contains(fmt.Sprint(v), code) {
						return true, pendingHint(code, detail)
					}
				}
			}
		}

		lowered := strings.ToLower(detail)
		for _, phrase := range notCollectedPhrases {
			if strings.Contains(lowered, phrase) {
				return true, pendingHint("", detail)
			}
		}
		return false, ""
	}
}

func pendingHint(code, detail string) string {
	hint := "credential not collected yet, try again shortly"
	if code != "" {
		hint += " (authority code " + code + ")"
	}
	if detail != "" {
		hint += ": " + detail
	}
	return hint
}
