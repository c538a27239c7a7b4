package settlement

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes settlement HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/settlement", func(r chi.Router) {
		r.Get("/orders/{id}/preview", h.previewSplit) // GET  /api/v1/settlement/orders/{id}/preview?parts=3
		r.Post("/orders/{id}", h.apply)               // POST /api/v1/settlement/orders/{id}
		r.Get("/orders/{id}/payments", h.payments)    // GET  /api/v1/settlement/orders/{id}/payments
	})
}

func (h *Handler) previewSplit(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	parts, err := strconv.Atoi(r.URL.Query().Get("parts"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_parts", "parts must be an integer")
		return
	}
	amounts, err := h.service.PreviewSplit(r.Context(), ac, chi.URLParam(r, "id"), parts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"parts": parts, "amounts": amounts})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	result, err := h.service.Apply(r.Context(), ac, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	payments, err := h.service.ListPayments(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, payments)
}

func respondServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusInternalServerError
	reason := "internal"
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		reason = msg[:i]
	}
	switch reason {
	case "order_not_found":
		code = http.StatusNotFound
	case "invalid_tender", "invalid_amount", "no_payments", "bad_parts":
		code = http.StatusBadRequest
	case "insufficient_payment", "split_mismatch", "order_not_settleable":
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
