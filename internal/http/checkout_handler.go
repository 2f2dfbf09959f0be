package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Fundandi1/memorybear/internal/checkout"
)

// CheckoutService is the slice of the checkout service the handler needs.
type CheckoutService interface {
	Initiate(ctx context.Context, draft checkout.Draft, customer checkout.Customer) (*checkout.InitiateResult, error)
	ResolveAndSettle(ctx context.Context, reference string) (*checkout.SettleResult, error)
	Cancel(ctx context.Context, reference string) error
	CaptureFailures(ctx context.Context, limit int) ([]checkout.CaptureFailure, error)
}

type CheckoutHandler struct {
	service CheckoutService
	carts   CartService
	log     *logrus.Logger
	timeout time.Duration
}

func NewCheckoutHandler(service CheckoutService, carts CartService, log *logrus.Logger, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		carts:   carts,
		log:     log,
		timeout: timeout,
	}
}

type CheckoutItemDTO struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	UnitPrice     int64             `json:"unit_price"`
	Quantity      int               `json:"quantity"`
	Customization map[string]string `json:"customization,omitempty"`
}

type InitiateCheckoutRequestDTO struct {
	Items          []CheckoutItemDTO `json:"items"`
	ShippingMethod string            `json:"shipping_method"`
	ShippingCost   int64             `json:"shipping_cost"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Customer       checkout.Customer `json:"customer"`
	Comments       string            `json:"comments,omitempty"`
}

type InitiateCheckoutResponseDTO struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

type SettleResponseDTO struct {
	Outcome         string `json:"outcome"`
	CaptureRecorded bool   `json:"capture_recorded"`
}

type CaptureFailureDTO struct {
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *CheckoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount < 0 || req.ShippingCost < 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amounts must not be negative")
		return
	}

	items := make([]checkout.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, checkout.OrderItem{
			ID:            item.ID,
			Name:          item.Name,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			Customization: item.Customization,
		})
	}

	ret, err := h.service.Initiate(ctx, checkout.Draft{
		Items:          items,
		ShippingMethod: req.ShippingMethod,
		ShippingCost:   req.ShippingCost,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Comments:       req.Comments,
	}, req.Customer)
	if err != nil {
		h.respondInitiateError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, InitiateCheckoutResponseDTO{
		Reference:   ret.Reference,
		RedirectURL: ret.RedirectURL,
	})
}

func (h *CheckoutHandler) respondInitiateError(w http.ResponseWriter, err error) {
	var mismatch *checkout.AmountMismatchError
	var rejected *checkout.PaymentRejectedError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, checkout.ErrEmptyOrder):
		respondError(w, http.StatusBadRequest, "empty_order", "order has no items")
	case errors.As(err, &mismatch):
		respondError(w, http.StatusBadRequest, "amount_mismatch", mismatch.Error())
	case errors.As(err, &validationErrs):
		respondError(w, http.StatusBadRequest, "invalid_customer", validationErrs.Error())
	case errors.As(err, &rejected):
		respondError(w, http.StatusPaymentRequired, "payment_rejected", "payment was rejected by the provider")
	case errors.Is(err, checkout.ErrUpstreamUnavailable):
		respondError(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unavailable")
	default:
		h.log.WithError(err).Error("checkout initiation failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to initiate checkout")
	}
}

func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		respondError(w, http.StatusBadRequest, "missing_reference", "reference query parameter is required")
		return
	}

	ret, err := h.service.ResolveAndSettle(ctx, reference)
	if errors.Is(err, checkout.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "no order for this reference")
		return
	}
	if errors.Is(err, checkout.ErrUpstreamUnavailable) {
		respondError(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unavailable")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("reference", reference).Error("settlement failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve payment")
		return
	}

	// A paid order means the session's cart is spent.
	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" && isPaid(ret.Outcome) {
		if errClear := h.carts.Clear(ctx, sessionID); errClear != nil {
			h.log.WithError(errClear).WithField("session_id", sessionID).Warn("failed to clear cart after settlement")
		}
	}

	respondJSON(w, http.StatusOK, SettleResponseDTO{
		Outcome:         ret.Outcome.String(),
		CaptureRecorded: ret.CaptureRecorded,
	})
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reference := chi.URLParam(r, "reference")

	err := h.service.Cancel(ctx, reference)
	if errors.Is(err, checkout.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "no order for this reference")
		return
	}
	if errors.Is(err, checkout.ErrUpstreamUnavailable) {
		respondError(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unavailable")
		return
	}
	if err != nil {
		respondError(w, http.StatusConflict, "cancel_failed", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) ListCaptureFailures(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	failures, err := h.service.CaptureFailures(ctx, limit)
	if err != nil {
		h.log.WithError(err).Error("failed to list capture failures")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list capture failures")
		return
	}

	out := make([]CaptureFailureDTO, 0, len(failures))
	for _, f := range failures {
		out = append(out, CaptureFailureDTO{
			Reference: f.Reference,
			Amount:    f.Amount,
			Reason:    f.Reason,
			CreatedAt: f.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func isPaid(outcome checkout.Outcome) bool {
	return outcome == checkout.OutcomeAuthorized || outcome == checkout.OutcomeCaptured
}
