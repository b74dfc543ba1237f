// Package models holds the shared credential vocabulary: disclosure scopes,
// card template scopes, and the provenance tags for reconciled facts.
package models

import (
	"fmt"
	"strings"
)

// Scope is the coarse disclosure category a credential proves.
type Scope string

const (
	ScopeMedicalRecord    Scope = "MEDICAL_RECORD"
	ScopeMedicationPickup Scope = "MEDICATION_PICKUP"
	ScopeResearchConsent  Scope = "RESEARCH_CONSENT"
	ScopeIdentity         Scope = "IDENTITY"
)

// CardScope is the finer-grained credential template type. Several card
// scopes map onto one disclosure scope.
type CardScope string

const (
	CardScopeCondition  CardScope = "condition"
	CardScopeAllergy    CardScope = "allergy"
	CardScopeMedication CardScope = "medication"
	CardScopeConsent    CardScope = "consent"
	CardScopeIdentity   CardScope = "identity"
)

// Disclosure returns the disclosure scope a card scope belongs to.
func (c CardScope) Disclosure() Scope {
	switch c {
	case CardScopeCondition, CardScopeAllergy:
		return ScopeMedicalRecord
	case CardScopeMedication:
		return ScopeMedicationPickup
	case CardScopeConsent:
		return ScopeResearchConsent
	case CardScopeIdentity:
		return ScopeIdentity
	}
	return ""
}

// ParseCardScope validates a card scope string.
func ParseCardScope(raw string) (CardScope, error) {
	c := CardScope(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CardScopeCondition, CardScopeAllergy, CardScopeMedication,
		CardScopeConsent, CardScopeIdentity:
		return c, nil
	}
	return "", fmt.Errorf("unknown card scope %q", raw)
}

// LookupSource tags how a record's CID and status were obtained.
type LookupSource string

const (
	LookupSourceNone        LookupSource = ""
	LookupSourceResponse    LookupSource = "response"
	LookupSourceNonce       LookupSource = "nonce"
	LookupSourceManual      LookupSource = "manual"
	LookupSourceWallet      LookupSource = "wallet"
	LookupSourceTransaction LookupSource = "transaction"
)
