package inventory

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Get("/", h.list)           // GET  /api/v1/stock
		r.Get("/low", h.listLow)     // GET  /api/v1/stock/low
		r.Post("/adjust", h.adjust)  // POST /api/v1/stock/adjust
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	items, err := h.service.ListStock(r.Context(), ac)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) listLow(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	items, err := h.service.ListLowStock(r.Context(), ac)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.service.Adjust(r.Context(), ac, req); err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusInternalServerError
	reason := "internal"
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		reason = msg[:i]
	}
	switch reason {
	case "stock_item_not_found":
		code = http.StatusNotFound
	case "invalid_amount", "bad_request":
		code = http.StatusBadRequest
	case "forbidden":
		code = http.StatusForbidden
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
