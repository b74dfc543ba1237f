// Package ledger keeps the bounded, most-recent-first record of credential
// issuances the gateway has observed. Records merge by identity rather than
// append blindly, so repeated lookups for the same credential refine one
// entry instead of flooding the list.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"vc-gateway/internal/credential/cid"
	"vc-gateway/internal/credential/models"
	"vc-gateway/internal/credential/revocation"
	"vc-gateway/internal/credential/status"
)

// DefaultCap is the bounded size of the ledger. The oldest entries fall off
// when a new identity arrives at capacity.
const DefaultCap = 50

// Record is one issuance entry. Timestamps are RFC 3339 strings so snapshots
// round-trip byte-identically across backends.
type Record struct {
	Timestamp     string `json:"timestamp"`
	HolderDID     string `json:"holderDid,omitempty"`
	IssuerID      string `json:"issuerId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	CID           string `json:"cid,omitempty"`
	CredentialJTI string `json:"credentialJti,omitempty"`

	RoutingPrefix         string `json:"routingPrefix,omitempty"`
	RevocationPath        string `json:"revocationPath,omitempty"`
	RevocationDisplayPath string `json:"revocationDisplayPath,omitempty"`
	RevocationURL         string `json:"revocationUrl,omitempty"`
	RevocationDisplayURL  string `json:"revocationDisplayUrl,omitempty"`

	Scope     models.Scope     `json:"scope,omitempty"`
	CardScope models.CardScope `json:"cardScope,omitempty"`

	Status      string `json:"status,omitempty"`
	StatusText  string `json:"statusText,omitempty"`
	StatusTone  string `json:"statusTone,omitempty"`
	Collected   bool   `json:"collected"`
	CollectedAt string `json:"collectedAt,omitempty"`
	RevokedAt   string `json:"revokedAt,omitempty"`

	LookupSource  models.LookupSource `json:"lookupSource,omitempty"`
	LookupError   string              `json:"lookupError,omitempty"`
	LookupPending bool                `json:"lookupPending,omitempty"`
	LookupHint    string              `json:"lookupHint,omitempty"`
}

// Facts is a reconciled lookup result ready to merge into a record. It is
// the ledger's own input vocabulary so callers in other packages convert
// into it rather than couple the ledger to their result types.
type Facts struct {
	OK            bool
	CID           string
	CredentialJTI string
	Status        string
	Collected     bool
	CollectedAt   string
	RevokedAt     string
	HolderDID     string
	Pending       bool
	Hint          string
	Error         string
	Source        models.LookupSource
}

// sameIdentity reports whether two records describe the same credential:
// matching non-empty transaction ids or matching non-empty CIDs.
func sameIdentity(a, b Record) bool {
	if a.TransactionID != "" && a.TransactionID == b.TransactionID {
		return true
	}
	if a.CID != "" && a.CID == b.CID {
		return true
	}
	return false
}

// normalizeRecord canonicalizes an entry before it enters the ledger: the
// CID is normalized (derived from the JTI when absent), the status taxonomy
// supplies the display text, tone, and collected bit, and the revocation
// locator fields are recomputed from whatever survived. It fails when the
// entry carries no identity at all, which is how corrupted snapshot entries
// get dropped on rehydrate.
func normalizeRecord(rec Record, routingPrefix, baseURL string, now time.Time) (Record, error) {
	rec.TransactionID = strings.TrimSpace(rec.TransactionID)
	rec.CredentialJTI = strings.TrimSpace(rec.CredentialJTI)

	rec.CID = cid.Normalize(rec.CID)
	if rec.CID == "" && rec.CredentialJTI != "" {
		rec.CID = cid.FromJTI(rec.CredentialJTI)
	}

	if rec.TransactionID == "" && rec.CID == "" && rec.CredentialJTI == "" {
		return Record{}, fmt.Errorf("record has no transaction id, cid, or jti")
	}

	rec.Status = status.Normalize(rec.Status)
	desc := status.Describe(rec.Status)
	rec.StatusText = desc.Text
	rec.StatusTone = string(desc.Tone)
	if rec.Status != "" {
		// A reported status outranks any previously stored collected bit.
		rec.Collected = desc.Collected
	}

	if rec.RoutingPrefix == "" {
		rec.RoutingPrefix = routingPrefix
	}
	details := revocation.Compute(revocation.Input{
		CID:               rec.CID,
		RoutingPrefix:     rec.RoutingPrefix,
		BaseURL:           baseURL,
		StoredPath:        rec.RevocationPath,
		StoredURL:         rec.RevocationURL,
		StoredDisplayPath: rec.RevocationDisplayPath,
		StoredDisplayURL:  rec.RevocationDisplayURL,
	})
	rec.RevocationPath = details.Path
	rec.RevocationURL = details.URL
	rec.RevocationDisplayPath = details.DisplayPath
	rec.RevocationDisplayURL = details.DisplayURL

	if rec.CardScope != "" && rec.Scope == "" {
		rec.Scope = rec.CardScope.Disclosure()
	}

	if rec.Timestamp == "" {
		rec.Timestamp = now.UTC().Format(time.RFC3339)
	}

	return rec, nil
}

// mergeRecords folds an incoming record into an existing one for the same
// identity. Non-empty incoming fields win; known good fields are never
// blanked by a sparser update, and the original issuance timestamp sticks.
func mergeRecords(existing, incoming Record) Record {
	merged := existing

	if incoming.HolderDID != "" {
		merged.HolderDID = incoming.HolderDID
	}
	if incoming.IssuerID != "" {
		merged.IssuerID = incoming.IssuerID
	}
	if incoming.TransactionID != "" {
		merged.TransactionID = incoming.TransactionID
	}
	if incoming.CID != "" {
		merged.CID = incoming.CID
	}
	if incoming.CredentialJTI != "" {
		merged.CredentialJTI = incoming.CredentialJTI
	}
	if incoming.RoutingPrefix != "" {
		merged.RoutingPrefix = incoming.RoutingPrefix
	}
	if incoming.RevocationPath != "" {
		merged.RevocationPath = incoming.RevocationPath
	}
	if incoming.RevocationDisplayPath != "" {
		merged.RevocationDisplayPath = incoming.RevocationDisplayPath
	}
	if incoming.RevocationURL != "" {
		merged.RevocationURL = incoming.RevocationURL
	}
	if incoming.RevocationDisplayURL != "" {
		merged.RevocationDisplayURL = incoming.RevocationDisplayURL
	}
	if incoming.Scope != "" {
		merged.Scope = incoming.Scope
	}
	if incoming.CardScope != "" {
		merged.CardScope = incoming.CardScope
	}
	if incoming.Status != "" {
		merged.Status = incoming.Status
		merged.StatusText = incoming.StatusText
		merged.StatusTone = incoming.StatusTone
		merged.Collected = incoming.Collected
	} else if incoming.Collected {
		// Heuristic collected bit without a status never downgrades, only
		// upgrades.
		merged.Collected = true
	}
	if incoming.CollectedAt != "" {
		merged.CollectedAt = incoming.CollectedAt
	}
	if incoming.RevokedAt != "" {
		merged.RevokedAt = incoming.RevokedAt
	}
	if incoming.LookupSource != "" {
		merged.LookupSource = incoming.LookupSource
	}
	merged.LookupError = incoming.LookupError
	merged.LookupPending = incoming.LookupPending
	merged.LookupHint = incoming.LookupHint

	return merged
}

// applyFacts folds a lookup result into a record. A successful lookup
// overwrites status fields and clears any stale lookup error; a pending or
// failed lookup only annotates the record, leaving previously reconciled
// fields untouched.
func applyFacts(rec Record, facts Facts) Record {
	if facts.Source != "" {
		rec.LookupSource = facts.Source
	}

	if !facts.OK {
		rec.LookupPending = facts.Pending
		rec.LookupHint = facts.Hint
		rec.LookupError = facts.Error
		return rec
	}

	rec.LookupPending = false
	rec.LookupHint = ""
	rec.LookupError = ""

	if facts.CID != "" {
		rec.CID = facts.CID
	}
	if facts.CredentialJTI != "" {
		rec.CredentialJTI = facts.CredentialJTI
	}
	if facts.HolderDID != "" {
		rec.HolderDID = facts.HolderDID
	}
	if facts.Status != "" {
		rec.Status = facts.Status
		rec.Collected = facts.Collected
	} else if facts.Collected {
		rec.Collected = true
	}
	if facts.CollectedAt != "" {
		rec.CollectedAt = facts.CollectedAt
	}
	if facts.RevokedAt != "" {
		rec.RevokedAt = facts.RevokedAt
	}

	return rec
}
