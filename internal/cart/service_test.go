package cart

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m    sync.RWMutex
	cart *Cart
	err  error
}

func (m *mockRepository) Get(context.Context, string) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockRepository) Save(_ context.Context, c *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = c
	return nil
}

func (m *mockRepository) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = nil
	return nil
}

func (m *mockRepository) getCart() *Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

type mockCache struct {
	m    sync.RWMutex
	cart *Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return m.err
}

func (m *mockCache) getCart() *Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGet_Success(t *testing.T) {
	cart := &Cart{
		Items: []Item{
			{ID: "bear-small", UnitPrice: 84900, Quantity: 2},
			{ID: "bear-large", UnitPrice: 119900, Quantity: 1},
		},
		SessionID: "sess-123",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: nil}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.Get(context.Background(), "sess-123")
	require.NoError(t, err)
	assert.NotNil(t, ret)
	assert.Equal(t, 2, len(ret.Items))
	assert.Equal(t, int64(289700), ret.Total())

	require.Eventually(t, func() bool {
		return mockC.getCart() != nil
	}, 100*time.Millisecond, 10*time.Millisecond, "cart was not set in cache")
}

func TestGet_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}
	mockC := &mockCache{cart: nil}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.Get(context.Background(), "sess-123")
	require.ErrorContains(t, err, "database error")
	assert.Nil(t, ret)
	assert.Nil(t, mockC.getCart())
}

func TestGet_CacheHit(t *testing.T) {
	cart := &Cart{
		Items:     []Item{{ID: "bear-small", UnitPrice: 84900, Quantity: 3}},
		SessionID: "sess-123",
	}
	mockRepo := &mockRepository{err: fmt.Errorf("repo should not be called")}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.Get(context.Background(), "sess-123")
	require.NoError(t, err)
	assert.Equal(t, 1, len(ret.Items))
	assert.Equal(t, 3, ret.Items[0].Quantity)
}

func TestGet_NotFound_ReturnsEmptyCart(t *testing.T) {
	mockRepo := &mockRepository{cart: nil}
	mockC := &mockCache{cart: nil}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.Get(context.Background(), "sess-123")
	require.NoError(t, err)
	assert.NotNil(t, ret)
	assert.Equal(t, "sess-123", ret.SessionID)
	assert.Empty(t, ret.Items)
	assert.NotEmpty(t, ret.ID)
}

func TestAddItem_Success(t *testing.T) {
	mockRepo := &mockRepository{cart: nil}
	mockC := &mockCache{cart: &Cart{SessionID: "sess-123"}}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.AddItem(context.Background(), "sess-123", Item{
		ID:        "bear-small",
		Name:      "Memory Bear Small",
		UnitPrice: 84900,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, len(ret.Items))
	assert.Equal(t, 1, ret.Items[0].Quantity)

	stored := mockRepo.getCart()
	require.NotNil(t, stored)
	assert.Equal(t, "sess-123", stored.SessionID)

	// Verify cache was invalidated
	assert.Nil(t, mockC.getCart())
}

func TestAddItem_RepoError(t *testing.T) {
	mockRepo := &mockRepository{err: fmt.Errorf("database error")}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testLogger())
	_, err := sut.AddItem(context.Background(), "sess-123", Item{ID: "bear-small", UnitPrice: 84900})
	require.ErrorContains(t, err, "database error")
}

func TestSetQuantity_Service(t *testing.T) {
	cart := &Cart{
		SessionID: "sess-123",
		Items:     []Item{{ID: "bear-small", UnitPrice: 84900, Quantity: 1}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.SetQuantity(context.Background(), "sess-123", "bear-small", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, ret.Items[0].Quantity)
	assert.Nil(t, mockC.getCart())
}

func TestSetQuantity_UnknownItem(t *testing.T) {
	mockRepo := &mockRepository{cart: &Cart{SessionID: "sess-123"}}
	mockC := &mockCache{}

	sut := NewService(mockRepo, mockC, testLogger())
	_, err := sut.SetQuantity(context.Background(), "sess-123", "missing", 4)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSetQuantity_ToZeroDeletesCart(t *testing.T) {
	cart := &Cart{
		SessionID: "sess-123",
		Items:     []Item{{ID: "bear-small", UnitPrice: 84900, Quantity: 2}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.SetQuantity(context.Background(), "sess-123", "bear-small", 0)
	require.NoError(t, err)
	assert.True(t, ret.Empty())
	// Empty carts are not kept in storage.
	assert.Nil(t, mockRepo.getCart())
}

func TestRemoveItem_Service(t *testing.T) {
	cart := &Cart{
		SessionID: "sess-123",
		Items: []Item{
			{ID: "bear-small", UnitPrice: 84900, Quantity: 1},
			{ID: "ribbon", UnitPrice: 2500, Quantity: 1},
		},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testLogger())
	ret, err := sut.RemoveItem(context.Background(), "sess-123", "bear-small")
	require.NoError(t, err)
	assert.Equal(t, 1, len(ret.Items))
	assert.Equal(t, "ribbon", ret.Items[0].ID)
	assert.Nil(t, mockC.getCart())
}

func TestClear(t *testing.T) {
	cart := &Cart{
		SessionID: "sess-123",
		Items:     []Item{{ID: "bear-small", UnitPrice: 84900, Quantity: 1}},
	}
	mockRepo := &mockRepository{cart: cart}
	mockC := &mockCache{cart: cart}

	sut := NewService(mockRepo, mockC, testLogger())
	err := sut.Clear(context.Background(), "sess-123")
	require.NoError(t, err)
	assert.Nil(t, mockRepo.getCart())
	assert.Nil(t, mockC.getCart())
}
