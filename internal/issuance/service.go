// Package issuance orchestrates credential lookups, ledger bookkeeping, and
// revocation calls. It is the layer handlers talk to: the reconcile package
// decides what the authority said, the ledger package remembers it, and this
// package sequences the two.
package issuance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vc-gateway/internal/authority"
	"vc-gateway/internal/credential/models"
	"vc-gateway/internal/credential/status"
	"vc-gateway/internal/ledger"
	"vc-gateway/internal/reconcile"
	"vc-gateway/internal/sentinel"
	dErrors "vc-gateway/pkg/domain-errors"
)

// Reconciler resolves the current remote truth for a transaction.
type Reconciler interface {
	LookupByTransaction(ctx context.Context, transactionID string) reconcile.Outcome
}

// Revoker issues revocation calls against the authority.
type Revoker interface {
	Revoke(ctx context.Context, path string) (authority.Result, error)
}

// Ledger is the issuance ledger surface this service needs.
type Ledger interface {
	Records() []ledger.Record
	Get(index int) (ledger.Record, error)
	Append(ctx context.Context, rec ledger.Record) (ledger.Record, error)
	Update(ctx context.Context, index int, fn func(*ledger.Record)) (ledger.Record, error)
	ApplyFacts(ctx context.Context, index int, facts ledger.Facts) (ledger.Record, error)
	Remove(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

// Service wires lookups, the ledger, and revocation together.
type Service struct {
	ledger     Ledger
	reconciler Reconciler
	revoker    Revoker
	logger     *slog.Logger
	now        func() time.Time
}

// New creates the issuance service.
func New(l Ledger, r Reconciler, rev Revoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:     l,
		reconciler: r,
		revoker:    rev,
		logger:     logger,
		now:        time.Now,
	}
}

// LookupResult pairs the reconciled outcome with the ledger record it was
// merged into. The record is stored even when the lookup came back pending
// or failed, so the annotation survives restarts.
type LookupResult struct {
	Record  ledger.Record     `json:"record"`
	Outcome reconcile.Outcome `json:"outcome"`
}

// ManualEntry is an operator-supplied ledger record.
type ManualEntry struct {
	TransactionID string `json:"transactionId"`
	CID           string `json:"cid"`
	CredentialJTI string `json:"credentialJti"`
	HolderDID     string `json:"holderDid"`
	IssuerID      string `json:"issuerId"`
	Status        string `json:"status"`
	CardScope     string `json:"cardScope"`
	CollectedAt   string `json:"collectedAt"`
	RevokedAt     string `json:"revokedAt"`
}

// Lookup reconciles a transaction against the authority and merges the
// result into the ledger under the transaction's identity.
func (s *Service) Lookup(ctx context.Context, transactionID, cardScope string) (LookupResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return LookupResult{}, dErrors.New(dErrors.CodeValidation, "transactionId is required")
	}

	rec := ledger.Record{
		TransactionID: transactionID,
		LookupSource:  models.LookupSourceNonce,
	}
	if cardScope != "" {
		parsed, err := models.ParseCardScope(cardScope)
		if err != nil {
			return LookupResult{}, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		rec.CardScope = parsed
	}

	outcome := s.reconciler.LookupByTransaction(ctx, transactionID)
	rec.CID = outcome.CID
	rec.CredentialJTI = outcome.CredentialJTI
	rec.HolderDID = outcome.HolderDID
	rec.Status = outcome.Status
	rec.Collected = outcome.Collected
	rec.CollectedAt = outcome.CollectedAt
	rec.RevokedAt = outcome.RevokedAt
	rec.LookupPending = outcome.Pending
	rec.LookupHint = outcome.Hint
	rec.LookupError = outcome.Error

	stored, err := s.ledger.Append(ctx, rec)
	if err != nil {
		return LookupResult{}, translateLedgerErr(err, "record lookup result")
	}
	return LookupResult{Record: stored, Outcome: outcome}, nil
}

// Refresh re-runs the authority lookup for an existing record and folds the
// result back in, preserving previously reconciled fields on pending or
// failed lookups.
func (s *Service) Refresh(ctx context.Context, index int) (LookupResult, error) {
	rec, err := s.ledger.Get(index)
	if err != nil {
		return LookupResult{}, translateLedgerErr(err, "refresh record")
	}
	if rec.TransactionID == "" {
		return LookupResult{}, dErrors.New(dErrors.CodeValidation,
			"record has no transaction id to refresh with")
	}

	outcome := s.reconciler.LookupByTransaction(ctx, rec.TransactionID)
	updated, err := s.ledger.ApplyFacts(ctx, index, ledger.Facts{
		OK:            outcome.OK,
		CID:           outcome.CID,
		CredentialJTI: outcome.CredentialJTI,
		Status:        outcome.Status,
		Collected:     outcome.Collected,
		CollectedAt:   outcome.CollectedAt,
		RevokedAt:     outcome.RevokedAt,
		HolderDID:     outcome.HolderDID,
		Pending:       outcome.Pending,
		Hint:          outcome.Hint,
		Error:         outcome.Error,
		Source:        models.LookupSourceNonce,
	})
	if err != nil {
		return LookupResult{}, translateLedgerErr(err, "apply refresh result")
	}
	return LookupResult{Record: updated, Outcome: outcome}, nil
}

// ManualAdd records an operator-supplied entry.
func (s *Service) ManualAdd(ctx context.Context, entry ManualEntry) (ledger.Record, error) {
	rec := ledger.Record{
		TransactionID: entry.TransactionID,
		CID:           entry.CID,
		CredentialJTI: entry.CredentialJTI,
		HolderDID:     entry.HolderDID,
		IssuerID:      entry.IssuerID,
		Status:        entry.Status,
		CollectedAt:   entry.CollectedAt,
		RevokedAt:     entry.RevokedAt,
		LookupSource:  models.LookupSourceManual,
	}
	if entry.CardScope != "" {
		parsed, err := models.ParseCardScope(entry.CardScope)
		if err != nil {
			return ledger.Record{}, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		rec.CardScope = parsed
	}

	stored, err := s.ledger.Append(ctx, rec)
	if err != nil {
		return ledger.Record{}, translateLedgerErr(err, "add manual record")
	}
	return stored, nil
}

// MarkCollected records that the holder collected the credential. The status
// taxonomy drives the collected bit, so the record gets the canonical
// collected status rather than a raw boolean flip.
func (s *Service) MarkCollected(ctx context.Context, index int) (ledger.Record, error) {
	collectedAt := s.now().UTC().Format(time.RFC3339)
	updated, err := s.ledger.Update(ctx, index, func(rec *ledger.Record) {
		rec.Status = "ACCEPTED"
		if rec.CollectedAt == "" {
			rec.CollectedAt = collectedAt
		}
		rec.LookupSource = models.LookupSourceManual
		rec.LookupPending = false
		rec.LookupHint = ""
		rec.LookupError = ""
	})
	if err != nil {
		return ledger.Record{}, translateLedgerErr(err, "mark record collected")
	}
	return updated, nil
}

// Revoke calls the authority's revocation endpoint for the record at index
// and marks the record revoked on success. Revoking an already revoked
// record is a conflict; the authority enforces the same rule remotely.
func (s *Service) Revoke(ctx context.Context, index int) (ledger.Record, error) {
	rec, err := s.ledger.Get(index)
	if err != nil {
		return ledger.Record{}, translateLedgerErr(err, "revoke record")
	}
	if status.IsRevoked(rec.Status) {
		return ledger.Record{}, dErrors.New(dErrors.CodeConflict, "credential is already revoked")
	}
	if rec.RevocationPath == "" {
		return ledger.Record{}, dErrors.New(dErrors.CodeValidation,
			"record has no revocation path; a cid is required")
	}

	result, err := s.revoker.Revoke(ctx, rec.RevocationPath)
	if err != nil {
		return ledger.Record{}, dErrors.Wrap(err, dErrors.CodeUpstreamFailure, "authority revoke failed")
	}
	if !result.OK {
		code := dErrors.CodeUpstreamFailure
		if result.Status == 409 {
			code = dErrors.CodeConflict
		}
		return ledger.Record{}, dErrors.New(code, "authority rejected revoke: "+result.Detail)
	}

	revokedAt := s.now().UTC().Format(time.RFC3339)
	updated, err := s.ledger.Update(ctx, index, func(rec *ledger.Record) {
		rec.Status = "REVOKED"
		if rec.RevokedAt == "" {
			rec.RevokedAt = revokedAt
		}
		rec.LookupSource = models.LookupSourceResponse
		rec.LookupPending = false
		rec.LookupHint = ""
		rec.LookupError = ""
	})
	if err != nil {
		return ledger.Record{}, translateLedgerErr(err, "mark record revoked")
	}

	s.logger.InfoContext(ctx, "credential revoked",
		"cid", updated.CID,
		"path", rec.RevocationPath,
	)
	return updated, nil
}

// Records returns the ledger, most recent first.
func (s *Service) Records() []ledger.Record {
	return s.ledger.Records()
}

// Remove deletes the record at index.
func (s *Service) Remove(ctx context.Context, index int) error {
	if err := s.ledger.Remove(ctx, index); err != nil {
		return translateLedgerErr(err, "remove record")
	}
	return nil
}

// Clear empties the ledger.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.ledger.Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "clear ledger")
	}
	return nil
}

func translateLedgerErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "ledger record not found")
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
	}
}
