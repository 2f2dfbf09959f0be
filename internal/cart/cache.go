package cart

import (
	"context"
	"errors"
)

// Cache is a read-through cache in front of the cart repository. A miss is
// reported as ErrCacheMiss, never as a nil cart.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Set(ctx context.Context, sessionID string, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
