package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo  Repository
	cache Cache
	log   *logrus.Logger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache, log *logrus.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Get returns the cart for a session. A session without a stored cart gets a
// fresh empty cart; absence is never an error to the caller.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	// Use singleflight so concurrent cache misses for the same session hit
	// the repository once.
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {

		cached, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cached, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			s.log.WithError(err).Warn("cart cache get failed") // degraded, keep going
		}

		stored, errGet := s.repo.Get(ctx, sessionID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			return s.newCart(sessionID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, stored); errSet != nil {
				s.log.WithError(errSet).Warn("cart cache set failed")
			}
		}()

		return stored, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Cart), nil
}

func (s *Service) AddItem(ctx context.Context, sessionID string, item Item) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.Add(item)
		return nil
	})
}

func (s *Service) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if !c.SetQuantity(itemID, quantity) {
			return ErrItemNotFound
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if !c.Remove(itemID) {
			return ErrItemNotFound
		}
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.log.WithError(err).Error("cart delete failed")
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

// mutate loads the session's cart, applies fn, and persists the result. A
// cart that ends up empty is deleted rather than stored, so storage only
// ever holds carts with items.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		cart = s.newCart(sessionID)
	} else if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = time.Now()

	if cart.Empty() {
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			s.log.WithError(err).Error("cart delete failed")
			return nil, err
		}
	} else {
		if err := s.repo.Save(ctx, cart); err != nil {
			s.log.WithError(err).Error("cart save failed")
			return nil, err
		}
	}

	s.invalidateCache(sessionID)
	return cart, nil
}

func (s *Service) newCart(sessionID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.WithError(err).Warn("cart cache invalidate failed")
	}
}
