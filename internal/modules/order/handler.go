package order

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.create)                         // POST  /api/v1/orders
		r.Get("/", h.list)                            // GET   /api/v1/orders?status=open
		r.Get("/{id}", h.get)                         // GET   /api/v1/orders/{id}
		r.Get("/number/{number}", h.getByNumber)      // GET   /api/v1/orders/number/{number}
		r.Patch("/{id}/status", h.updateStatus)       // PATCH /api/v1/orders/{id}/status
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	o, err := h.service.Create(r.Context(), ac, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	o, err := h.service.Get(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) getByNumber(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	o, err := h.service.GetByNumber(r.Context(), ac, chi.URLParam(r, "number"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	orders, err := h.service.List(r.Context(), ac, r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), ac, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// ── response helpers ─────────────────────────────────────────────────────────

// reasonOf extracts the machine-readable reason token from a service error.
func reasonOf(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		return msg[:i]
	}
	return "internal"
}

func respondServiceError(w http.ResponseWriter, err error) {
	reason := reasonOf(err)
	code := http.StatusInternalServerError
	switch reason {
	case "order_not_found":
		code = http.StatusNotFound
	case "bad_transition":
		code = http.StatusUnprocessableEntity
	case "no_lines", "guests_required", "subtotal_zero", "bad_line",
		"bad_order_type", "bad_table", "bad_customer":
		code = http.StatusBadRequest
	}
	respondError(w, code, reason, err.Error())
}

func respondError(w http.ResponseWriter, status int, reason, msg string) {
	respond(w, status, map[string]string{"error": msg, "reason": reason})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
