package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vc-gateway/internal/stats"
	"vc-gateway/pkg/platform/httputil"
)

// Service exposes ledger aggregates.
type Service interface {
	Snapshot() stats.Snapshot
}

type Handler struct {
	service Service
}

func New(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/stats", h.HandleStats)
}

// HandleStats returns current ledger aggregates.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Snapshot())
}
