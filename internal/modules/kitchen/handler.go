package kitchen

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes kitchen HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/kitchen", func(r chi.Router) {
		r.Get("/orders/{id}", h.state)      // GET  /api/v1/kitchen/orders/{id}
		r.Post("/orders/{id}/fire", h.fire) // POST /api/v1/kitchen/orders/{id}/fire
		r.Post("/orders/{id}/hold", h.hold) // POST /api/v1/kitchen/orders/{id}/hold
	})
}

func (h *Handler) fire(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req FireRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	st, err := h.service.Fire(r.Context(), ac, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) hold(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req HoldRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	st, err := h.service.Hold(r.Context(), ac, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	st, err := h.service.State(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
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
	case "order_immutable":
		code = http.StatusConflict
	case "no_matching_lines":
		code = http.StatusBadRequest
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
