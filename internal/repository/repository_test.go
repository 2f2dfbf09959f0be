package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Fundandi1/memorybear/internal/checkout"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(reference string) *checkout.Order {
	return &checkout.Order{
		Reference:      reference,
		Status:         checkout.OrderStatusCreated,
		Amount:         89800,
		Currency:       "DKK",
		ShippingMethod: "home",
		ShippingCost:   4900,
		Customer: checkout.Customer{
			FirstName: "Mette",
			LastName:  "Jensen",
			Email:     "mette@example.com",
			Phone:     "+4512345678",
			Address:   "Nørregade 1",
			City:      "København",
		},
		Items: []checkout.OrderItem{
			{
				ID:        "bear-small",
				Name:      "Memory Bear Small",
				UnitPrice: 84900,
				Quantity:  1,
				Customization: map[string]string{
					"fabric": "own",
					"face":   "classic",
				},
			},
		},
	}
}

func TestCreateOrder_Roundtrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("order-aaaa1111")

	err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	fetched, err := repo.GetOrderByReference(ctx, "order-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, order.Reference, fetched.Reference)
	assert.Equal(t, checkout.OrderStatusCreated, fetched.Status)
	assert.Equal(t, order.Amount, fetched.Amount)
	assert.Equal(t, order.Customer.Email, fetched.Customer.Email)
	assert.Equal(t, order.Customer.Phone, fetched.Customer.Phone)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "own", fetched.Items[0].Customization["fabric"])
	assert.Nil(t, fetched.CompletedAt)
}

func TestCreateOrder_DuplicateReference(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("order-aaaa1111")))

	err := repo.CreateOrder(ctx, newTestOrder("order-aaaa1111"))
	assert.ErrorIs(t, err, ErrDuplicateReference)
}

func TestGetOrderByReference_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByReference(context.Background(), "order-missing")
	assert.ErrorIs(t, err, checkout.ErrOrderNotFound)
}

func TestSetOrderStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("order-aaaa1111")))

	err := repo.SetOrderStatus(ctx, "order-aaaa1111", checkout.OrderStatusCancelled)
	require.NoError(t, err)

	fetched, err := repo.GetOrderByReference(ctx, "order-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, checkout.OrderStatusCancelled, fetched.Status)
}

func TestSetOrderStatus_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SetOrderStatus(context.Background(), "order-missing", checkout.OrderStatusCancelled)
	assert.ErrorIs(t, err, checkout.ErrOrderNotFound)
}

func TestCompleteOrder_StagesOutboxEvent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("order-aaaa1111")))

	err := repo.CompleteOrder(ctx, "order-aaaa1111")
	require.NoError(t, err)

	fetched, err := repo.GetOrderByReference(ctx, "order-aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, checkout.OrderStatusCompleted, fetched.Status)
	assert.NotNil(t, fetched.CompletedAt)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order-aaaa1111", events[0].AggregateID)
	assert.Equal(t, "order.settled", events[0].EventType)
}

func TestRecordCaptureFailure_StagesOutboxEvent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("order-aaaa1111")))

	err := repo.RecordCaptureFailure(ctx, checkout.CaptureFailure{
		Reference: "order-aaaa1111",
		Amount:    89800,
		Reason:    "capture declined",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	failures, err := repo.ListCaptureFailures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "order-aaaa1111", failures[0].Reference)
	assert.Equal(t, int64(89800), failures[0].Amount)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "payment.capture.failed", events[0].EventType)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("order-aaaa1111")))
	require.NoError(t, repo.CompleteOrder(ctx, "order-aaaa1111"))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecordPaymentEvent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := repo.RecordPaymentEvent(ctx, checkout.PaymentEvent{
		Reference: "order-aaaa1111",
		EventType: "payment.created",
		Amount:    89800,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	err = repo.RecordPaymentEvent(ctx, checkout.PaymentEvent{
		Reference: "order-aaaa1111",
		EventType: "payment.status_checked",
		Payload:   []byte(`{"state":"AUTHORIZED"}`),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}
