// Package handler exposes the checkout flow over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

// Handler serves the checkout API, delegating business logic to the
// checkout service.
type Handler struct {
	checkout *checkout.Service
}

// New constructs a Handler with the required checkout service.
func New(svc *checkout.Service) *Handler {
	return &Handler{checkout: svc}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout/purchase", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{trackingNumber}", h.TrackOrder)
	mux.HandleFunc("GET /api/orders", h.OrderHistory)
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: message})
}
