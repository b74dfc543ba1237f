package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vc-gateway/internal/issuance"
	"vc-gateway/internal/ledger"
	"vc-gateway/internal/platform/middleware"
	dErrors "vc-gateway/pkg/domain-errors"
	"vc-gateway/pkg/platform/httputil"
)

// Service defines the issuance operations the handler exposes.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Lookup(ctx context.Context, transactionID, cardScope string) (issuance.LookupResult, error)
	Refresh(ctx context.Context, index int) (issuance.LookupResult, error)
	ManualAdd(ctx context.Context, entry issuance.ManualEntry) (ledger.Record, error)
	MarkCollected(ctx context.Context, index int) (ledger.Record, error)
	Revoke(ctx context.Context, index int) (ledger.Record, error)
	Records() []ledger.Record
	Remove(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/credential/lookup", h.HandleLookup)
	r.Get("/api/ledger", h.HandleListLedger)
	r.Post("/api/ledger", h.HandleManualAdd)
	r.Delete("/api/ledger", h.HandleClearLedger)
	r.Delete("/api/ledger/{index}", h.HandleRemoveRecord)
	r.Post("/api/ledger/{index}/refresh", h.HandleRefresh)
	r.Post("/api/ledger/{index}/collected", h.HandleMarkCollected)
	r.Post("/api/ledger/{index}/revoke", h.HandleRevoke)
}

// LookupRequest asks for a credential lookup by transaction id.
type LookupRequest struct {
	TransactionID string `json:"transactionId"`
	CardScope     string `json:"cardScope,omitempty"`
}

// HandleLookup reconciles a transaction against the authority and records
// the result. Pending lookups answer 202 so pollers can distinguish "not
// collected yet" from hard failures.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[LookupRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Lookup(ctx, req.TransactionID, req.CardScope)
	if err != nil {
		h.logger.ErrorContext(ctx, "lookup failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, lookupStatus(result), result)
}

// HandleListLedger returns the ledger, most recent first.
func (h *Handler) HandleListLedger(w http.ResponseWriter, r *http.Request) {
	records := h.service.Records()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// HandleManualAdd records an operator-supplied ledger entry.
func (h *Handler) HandleManualAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[issuance.ManualEntry](w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.service.ManualAdd(ctx, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual add failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rec)
}

// HandleClearLedger empties the ledger.
func (h *Handler) HandleClearLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Clear(ctx); err != nil {
		h.logger.ErrorContext(ctx, "clear ledger failed", "error", err,
			"request_id", middleware.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveRecord deletes one ledger record.
func (h *Handler) HandleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := h.recordIndex(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(ctx, index); err != nil {
		h.logger.ErrorContext(ctx, "remove record failed", "error", err,
			"request_id", middleware.GetRequestID(ctx), "index", index)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh re-runs the authority lookup for an existing record.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := h.recordIndex(w, r)
	if !ok {
		return
	}

	result, err := h.service.Refresh(ctx, index)
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh failed", "error", err,
			"request_id", middleware.GetRequestID(ctx), "index", index)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, lookupStatus(result), result)
}

// HandleMarkCollected marks a record's credential as collected.
func (h *Handler) HandleMarkCollected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := h.recordIndex(w, r)
	if !ok {
		return
	}

	rec, err := h.service.MarkCollected(ctx, index)
	if err != nil {
		h.logger.ErrorContext(ctx, "mark collected failed", "error", err,
			"request_id", middleware.GetRequestID(ctx), "index", index)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleRevoke revokes a record's credential at the authority.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := h.recordIndex(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Revoke(ctx, index)
	if err != nil {
		h.logger.ErrorContext(ctx, "revoke failed", "error", err,
			"request_id", middleware.GetRequestID(ctx), "index", index)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) recordIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid ledger index"))
		return 0, false
	}
	return index, true
}

// lookupStatus maps a total lookup outcome onto an HTTP status: pending is
// 202 so pollers retry, a hard upstream failure is 502, success is 200.
func lookupStatus(result issuance.LookupResult) int {
	switch {
	case result.Outcome.Pending:
		return http.StatusAccepted
	case result.Outcome.Error != "":
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
