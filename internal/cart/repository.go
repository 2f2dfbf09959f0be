package cart

import (
	"context"
	"errors"
)

// Repository persists whole carts keyed by session id. An empty cart is
// represented by the absence of a stored document, never by an empty one, so
// implementations are expected to see Delete rather than Save when the last
// item goes.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)
