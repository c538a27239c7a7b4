package pricing

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes pricing HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/pricing/quote", h.quote) // POST /api/v1/pricing/quote
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	breakdown, err := h.service.Quote(r.Context(), ac, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, breakdown)
}

func respondServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusInternalServerError
	reason := "internal"
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		reason = msg[:i]
	}
	switch reason {
	case "bad_order_type", "no_lines", "guests_required", "bad_line", "subtotal_zero":
		code = http.StatusBadRequest
	case "tenant_rates_missing":
		code = http.StatusUnprocessableEntity
	}
	respondError(w, code, reason, msg)
}

func respondError(w http.ResponseWriter, status int, reason, msg string) {
	respond(w, status, map[string]string{"error": msg, "reason": reason})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
