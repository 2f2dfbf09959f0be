package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fundandi1/memorybear/internal/cart"
)

// CartService is the slice of the cart service the handler needs.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	AddItem(ctx context.Context, sessionID string, item cart.Item) (*cart.Cart, error)
	SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	UnitPrice     int64             `json:"unit_price"`
	Customization map[string]string `json:"customization,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())

	c, err := h.service.Get(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}
	if req.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_unit_price", "unit_price must not be negative")
		return
	}

	c, err := h.service.AddItem(ctx, sessionID, cart.Item{
		ID:            req.ID,
		Name:          req.Name,
		UnitPrice:     req.UnitPrice,
		Customization: req.Customization,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	itemID := chi.URLParam(r, "item_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	c, err := h.service.SetQuantity(ctx, sessionID, itemID, req.Quantity)
	if errors.Is(err, cart.ErrItemNotFound) {
		respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	itemID := chi.URLParam(r, "item_id")

	c, err := h.service.RemoveItem(ctx, sessionID, itemID)
	if errors.Is(err, cart.ErrItemNotFound) {
		respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())

	if err := h.service.Clear(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
