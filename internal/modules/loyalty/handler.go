package loyalty

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
)

// Handler exposes loyalty HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/loyalty", func(r chi.Router) {
		r.Post("/preview", h.preview)                       // POST /api/v1/loyalty/preview
		r.Post("/vouchers/redeem", h.redeem)                // POST /api/v1/loyalty/vouchers/redeem
		r.Post("/vouchers/convert", h.convert)              // POST /api/v1/loyalty/vouchers/convert
		r.Get("/customers/{customerID}", h.customerSummary) // GET  /api/v1/loyalty/customers/{customerID}
	})
}

type previewRequest struct {
	CustomerID string  `json:"customer_id"`
	Subtotal   float64 `json:"subtotal"`
	Total      float64 `json:"total"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	accruals, err := h.service.CalculateRewards(r.Context(), ac, req.CustomerID, req.Subtotal, req.Total)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"accruals": accruals})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	result, err := h.service.RedeemVoucher(r.Context(), ac, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	voucher, err := h.service.ConvertPointsToVoucher(r.Context(), ac, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusCreated, voucher)
}

func (h *Handler) customerSummary(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing tenant context")
		return
	}
	summary, err := h.service.CustomerSummary(r.Context(), ac, chi.URLParam(r, "customerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

func respondServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusInternalServerError
	reason := "internal"
	if i := strings.Index(msg, ":"); i > 0 && !strings.Contains(msg[:i], " ") {
		reason = msg[:i]
	}
	switch reason {
	case "customer_not_found", "program_not_found", "member_not_found", "order_not_found":
		code = http.StatusNotFound
	case "invalid_amount", "bad_request":
		code = http.StatusBadRequest
	case "insufficient_points", "program_not_convertible":
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
