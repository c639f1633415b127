// Package httpapi is the HTTP boundary for settlement: the provider webhook,
// the buyer return confirmation, and the checkout redirect builder. Response
// bodies follow the provider integration contract verbatim.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"tollgate/internal/observability"
	"tollgate/internal/settlement"
)

// SettlementService is the reconciliation surface the handlers drive.
type SettlementService interface {
	HandleWebhook(ctx context.Context, reference string) (settlement.Result, error)
	ConfirmReturn(ctx context.Context, orderID string) (settlement.ReturnResult, error)
}

// CheckoutService builds the hosted-payment redirect for an order.
type CheckoutService interface {
	BuildCheckoutRedirect(ctx context.Context, orderID string) (string, error)
}

const confirmationBlock = `<div><div class="status"><span>Payment Status</span><span>Confirmed</span></div><div class="cta"><a class="button" href="/profile/">Go to Courses</a></div></div>`

// Handler serves the settlement HTTP endpoints.
type Handler struct {
	service  SettlementService
	checkout CheckoutService
	metrics  *observability.Metrics
	logf     func(format string, args ...any)
}

// NewHandler constructs a Handler. metrics may be nil.
func NewHandler(service SettlementService, checkout CheckoutService, metrics *observability.Metrics, logf func(format string, args ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{
		service:  service,
		checkout: checkout,
		metrics:  metrics,
		logf:     logf,
	}
}

// Webhook handles the provider's server-to-server notification. The payload
// is untrusted; only the reference is read and the transaction is re-verified
// before any transition. A non-200 response makes the provider redeliver.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if reference == "" {
		http.Error(w, "missing reference", http.StatusBadRequest)
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, settlement.ErrVerificationUnavailable):
			h.metrics.AddOutcome("unavailable")
			h.logf("webhook %s: %v", reference, err)
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "Couldn't verify payment")
		default:
			h.logf("webhook %s: %v", reference, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.metrics.AddOutcome(result.Outcome.String())
	switch result.Outcome {
	case settlement.OutcomeMismatch:
		io.WriteString(w, "Total amount mis-match")
	case settlement.OutcomeFailed:
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "API returned error: "+result.Message)
	default:
		io.WriteString(w, "OK")
	}
}

// Return handles the buyer landing back from the hosted payment page. On
// confirmed payment it renders the confirmation block; on anything else it
// renders nothing and leaves the order for a later webhook delivery.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order"))
	if orderID == "" {
		http.Error(w, "missing order", http.StatusBadRequest)
		return
	}

	result, err := h.service.ConfirmReturn(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, settlement.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logf("return confirmation %s: %v", orderID, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if !result.Confirmed {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.metrics.AddOutcome(settlement.OutcomeCompleted.String())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, confirmationBlock)
}

type checkoutResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
}

// Checkout builds the hosted-payment redirect for an order and reports it as
// {result, redirect}. The caller must not redirect the buyer on "fail".
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.URL.Query().Get("order"))
	if orderID == "" {
		http.Error(w, "missing order", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	redirect, err := h.checkout.BuildCheckoutRedirect(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, settlement.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logf("checkout %s: %v", orderID, err)
		_ = json.NewEncoder(w).Encode(checkoutResponse{Result: "fail"})
		return
	}

	_ = json.NewEncoder(w).Encode(checkoutResponse{Result: "success", Redirect: redirect})
}

// Register mounts the settlement routes on the mux.
func (h *Handler) Register(mux *http.ServeMux, wrap func(op string, next http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(_ string, next http.Handler) http.Handler { return next }
	}
	mux.Handle("GET /webhook/paystack", wrap("webhook", http.HandlerFunc(h.Webhook)))
	mux.Handle("GET /payment/return", wrap("return", http.HandlerFunc(h.Return)))
	mux.Handle("POST /checkout", wrap("checkout", http.HandlerFunc(h.Checkout)))
}
