// Package resolve picks usable values out of heterogeneously named candidate
// fields. The sandbox API is not contractually stable across environments and
// versions: the same fact shows up under different names, nestings, and
// types. Call sites list every shape they have observed, in preference order,
// and these resolvers take the first candidate that works.
package resolve

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// negativeKeywords short-circuit Flag to false. They are checked before any
// positive match so that an explicit "pending" or "not_collected" wins over a
// looser positive keyword later in the candidate list.
var negativeKeywords = []string{
	"false", "0", "no", "n", "pending", "waiting", "issued",
	"uncollected", "not collected", "inactive",
}

// positiveKeywords are the base affirmative markers. Call sites may extend
// the set per query, e.g. with "revoked" for the is-revoked check.
var positiveKeywords = []string{
	"true", "1", "yes", "y", "accepted", "collected", "active",
	"done", "complete", "completed",
}

// flatten expands nested candidate slices in encounter order and discards
// nils, so call sites can group alternates without extra allocations.
func flatten(candidates []any) []any {
	out := make([]any, 0, len(candidates))
	for _, c := range candidates {
		switch v := c.(type) {
		case nil:
			continue
		case []any:
			out = append(out, flatten(v)...)
		default:
			out = append(out, c)
		}
	}
	return out
}

// FirstString returns the first candidate that is a non-empty string after
// trimming, or "" when none qualifies.
func FirstString(candidates ...any) string {
	for _, c := range flatten(candidates) {
		if s, ok := c.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// FirstTime returns the first candidate convertible to an ISO-8601 instant.
//
// Accepted shapes, in order of what each candidate is tried as: a time.Time,
// a finite epoch-millisecond number, a 10-digit string (epoch seconds), a
// 13-digit string (epoch milliseconds), or any other non-empty string which
// is assumed to already be a usable date representation and returned
// verbatim. Returns "" when nothing qualifies.
func FirstTime(candidates ...any) string {
	for _, c := range flatten(candidates) {
		switch v := c.(type) {
		case time.Time:
			if !v.IsZero() {
				return v.UTC().Format(time.RFC3339)
			}
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 {
				return time.UnixMilli(int64(v)).UTC().Format(time.RFC3339)
			}
		case int:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC().Format(time.RFC3339)
			}
		case int64:
			if v > 0 {
				return time.UnixMilli(v).UTC().Format(time.RFC3339)
			}
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			if isDigits(trimmed) {
				switch len(trimmed) {
				case 10:
					secs, err := strconv.ParseInt(trimmed, 10, 64)
					if err == nil {
						return time.Unix(secs, 0).UTC().Format(time.RFC3339)
					}
				case 13:
					millis, err := strconv.ParseInt(trimmed, 10, 64)
					if err == nil {
						return time.UnixMilli(millis).UTC().Format(time.RFC3339)
					}
				}
			}
			return trimmed
		}
	}
	return ""
}

// Flag reports whether any candidate reads as an affirmative marker.
//
// Candidates match when they are literally true, a positive finite number, or
// a string containing a positive keyword. Negative keywords are checked
// first, by exact match, and short-circuit the whole call to false: a status
// of "pending" must not be read as collected no matter what follows it in
// the candidate list. The keyword "active" never matches a string containing
// "inactive".
func Flag(candidates []any, extraPositive ...string) bool {
	positives := positiveKeywords
	if len(extraPositive) > 0 {
		positives = make([]string, 0, len(positiveKeywords)+len(extraPositive))
		positives = append(positives, positiveKeywords...)
		for _, kw := range extraPositive {
			positives = append(positives, canonicalKeyword(kw))
		}
	}

	for _, c := range flatten(candidates) {
		switch v := c.(type) {
		case bool:
			if v {
				return true
			}
			return false
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v > 0 {
				return true
			}
			if v == 0 {
				return false
			}
		case int:
			if v > 0 {
				return true
			}
			if v == 0 {
				return false
			}
		case string:
			normalized := canonicalKeyword(v)
			if normalized == "" {
				continue
			}
			for _, kw := range negativeKeywords {
				if normalized == kw {
					return false
				}
			}
			for _, kw := range positives {
				if kw == "active" && strings.Contains(normalized, "inactive") {
					continue
				}
				if strings.Contains(normalized, kw) {
					return true
				}
			}
		}
	}
	return false
}

// canonicalKeyword lowercases and maps underscores and hyphens to spaces so
// "NOT_COLLECTED", "not-collected" and "not collected" compare equal.
func canonicalKeyword(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
