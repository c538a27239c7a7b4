package shift

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes shift ledger HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/shifts", func(r chi.Router) {
		r.Post("/", h.open)                    // POST /api/v1/shifts
		r.Get("/", h.list)                     // GET  /api/v1/shifts
		r.Get("/current", h.current)           // GET  /api/v1/shifts/current
		r.Post("/close", h.close)              // POST /api/v1/shifts/close (the open shift)
		r.Post("/complete", h.complete)        // POST /api/v1/shifts/complete (the open shift)
		r.Get("/{id}", h.get)                  // GET  /api/v1/shifts/{id}
		r.Post("/{id}/close", h.close)         // POST /api/v1/shifts/{id}/close
		r.Post("/{id}/complete", h.complete)   // POST /api/v1/shifts/{id}/complete
		r.Post("/{id}/reconcile", h.reconcile) // POST /api/v1/shifts/{id}/reconcile
		r.Get("/{id}/audit", h.audit)          // GET  /api/v1/shifts/{id}/audit
	})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req OpenShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	sh, err := h.service.Open(r.Context(), ac, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, sh)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	sh, err := h.service.Current(r.Context(), ac)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, sh)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	sh, err := h.service.Get(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, sh)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	shifts, err := h.service.List(r.Context(), ac, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, shifts)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.end(w, r, h.service.Close)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.end(w, r, h.service.Complete)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	h.end(w, r, h.service.Reconcile)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, ac auth.Context, shiftID string, req CloseShiftRequest) (*Shift, error)) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req CloseShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	sh, err := fn(r.Context(), ac, chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, sh)
}

func (h *Handler) audit(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	records, err := h.service.Audit(r.Context(), ac, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, records)
}

func respondServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusInternalServerError
	reason := "internal"
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		reason = msg[:i]
	}
	switch reason {
	case "shift_not_found":
		code = http.StatusNotFound
	case "invalid_amount", "bad_request":
		code = http.StatusBadRequest
	case "duplicate_open_shift", "shift_not_open", "shift_not_closed":
		code = http.StatusConflict
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
