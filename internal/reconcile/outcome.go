package reconcile

import (
	"vc-gateway/internal/authority"
	"vc-gateway/internal/credential/cid"
	"vc-gateway/internal/credential/resolve"
	"vc-gateway/internal/credential/status"
	"vc-gateway/internal/credential/token"
)

// Outcome is the structured result of one lookup attempt. Exactly one of
// OK, Pending, or Error!="" holds; repeated attempts are independent, and
// merging an outcome into the ledger is the caller's job.
type Outcome struct {
	OK            bool   `json:"ok"`
	CID           string `json:"cid,omitempty"`
	CredentialJTI string `json:"credentialJti,omitempty"`
	Token         string `json:"token,omitempty"`
	Status        string `json:"status,omitempty"`
	Collected     bool   `json:"collected"`
	CollectedAt   string `json:"collectedAt,omitempty"`
	RevokedAt     string `json:"revokedAt,omitempty"`
	HolderDID     string `json:"holderDid,omitempty"`
	Pending       bool   `json:"pending"`
	Hint          string `json:"hint,omitempty"`
	Error         string `json:"error,omitempty"`
}

// tokenKeys are the envelope keys a signed credential has been observed
// under, at the top level or one object deep.
var tokenKeys = []string{"credential", "jwt", "credentialJwt", "credential_jwt"}

// findToken locates a signed token in a lookup response: the bare body, a
// top-level key, or the same keys nested one object down.
func findToken(result authority.Result) string {
	if result.Raw != "" {
		return result.Raw
	}
	if tok := tokenFromMap(result.Data); tok != "" {
		return tok
	}
	for _, v := range result.Data {
		if nested, ok := v.(map[string]any); ok {
			if tok := tokenFromMap(nested); tok != "" {
				return tok
			}
		}
	}
	return ""
}

func tokenFromMap(m map[string]any) string {
	for _, key := range tokenKeys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// extract reconciles a successful lookup response into an Outcome. Field
// precedence: explicit response fields win over decoded token claims, which
// win over heuristic boolean flags, which win over the mere presence of a
// timestamp.
func extract(result authority.Result) Outcome {
	data := result.Data
	if data == nil {
		data = map[string]any{}
	}

	rawToken := findToken(result)
	claims := token.DecodePayload(rawToken)
	if claims == nil {
		claims = map[string]any{}
	}

	jti := resolve.FirstString(data["jti"], claims["jti"])

	resolvedCID := cid.Normalize(resolve.FirstString(
		data["credentialId"], data["credential_id"], data["cid"],
		claims["credentialId"], claims["credential_id"], claims["cid"],
	))
	if resolvedCID == "" && jti != "" {
		resolvedCID = cid.FromJTI(jti)
	}

	normalizedStatus := status.Normalize(resolve.FirstString(
		data["status"], data["credentialStatus"], data["credential_status"],
		claims["status"], claims["credentialStatus"], claims["credential_status"],
	))
	described := status.Describe(normalizedStatus)

	collectedAt := resolve.FirstTime(
		data["collectedAt"], data["collected_at"], data["acceptedAt"], data["accepted_at"],
		claims["collectedAt"], claims["collected_at"], claims["acceptedAt"],
	)
	revokedAt := resolve.FirstTime(
		data["revokedAt"], data["revoked_at"],
		claims["revokedAt"], claims["revoked_at"],
	)

	collected := described.Collected
	if !collected && normalizedStatus == "" {
		collected = resolve.Flag([]any{
			data["collected"], data["isCollected"], data["is_collected"],
			claims["collected"], claims["isCollected"],
		})
	}
	if !collected && normalizedStatus == "" && collectedAt != "" {
		collected = true
	}

	if !described.Revoked && normalizedStatus == "" {
		revokedFlag := resolve.Flag([]any{
			data["revoked"], data["isRevoked"], data["is_revoked"],
			claims["revoked"], claims["isRevoked"],
		}, "revoked", "suspended")
		if revokedFlag || revokedAt != "" {
			// No status string came back but the response says revoked;
			// synthesize the canonical status so classification stays in
			// the taxonomy.
			normalizedStatus = "REVOKED"
			collected = false
		}
	}

	holderDID := resolve.FirstString(
		data["holderDid"], data["holder_did"], data["did"],
		claims["holderDid"], claims["holder_did"], claims["sub"],
	)

	return Outcome{
		OK:            true,
		CID:           resolvedCID,
		CredentialJTI: jti,
		Token:         rawToken,
		Status:        normalizedStatus,
		Collected:     collected,
		CollectedAt:   collectedAt,
		RevokedAt:     revokedAt,
		HolderDID:     holderDID,
	}
}
