package checkout

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// MockProvider implements PaymentProvider for testing
type MockProvider struct {
	Session    *ProviderSession
	CreateErr  error
	CreateCall int

	Status    *ProviderStatus
	StatusErr error

	CaptureErr     error
	CaptureCalls   int
	CapturedAmount int64

	CancelErr   error
	CancelCalls int
}

func (m *MockProvider) CreatePayment(_ context.Context, _ ProviderPayment) (*ProviderSession, error) {
	m.CreateCall++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Session, nil
}

func (m *MockProvider) GetPayment(_ context.Context, _ string) (*ProviderStatus, error) {
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	return m.Status, nil
}

func (m *MockProvider) Capture(_ context.Context, _ string, amount int64, _ string) error {
	m.CaptureCalls++
	m.CapturedAmount = amount
	return m.CaptureErr
}

func (m *MockProvider) Cancel(_ context.Context, _ string) error {
	m.CancelCalls++
	return m.CancelErr
}

// MockStore implements OrderStore for testing
type MockStore struct {
	Order     *Order
	GetErr    error
	CreateErr error

	CreatedOrder    *Order
	Statuses        []OrderStatus
	Completed       int
	Events          []PaymentEvent
	Failures        []CaptureFailure
	CompleteErr     error
	RecordEventErr  error
	RecordFailErr   error
	ListFailErr     error
	SetStatusErr    error
}

func (m *MockStore) CreateOrder(_ context.Context, order *Order) error {
	m.CreatedOrder = order
	return m.CreateErr
}

func (m *MockStore) GetOrderByReference(_ context.Context, _ string) (*Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Order == nil {
		return nil, ErrOrderNotFound
	}
	return m.Order, nil
}

func (m *MockStore) SetOrderStatus(_ context.Context, _ string, status OrderStatus) error {
	if m.SetStatusErr != nil {
		return m.SetStatusErr
	}
	m.Statuses = append(m.Statuses, status)
	return nil
}

func (m *MockStore) CompleteOrder(_ context.Context, _ string) error {
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.Completed++
	return nil
}

func (m *MockStore) RecordPaymentEvent(_ context.Context, event PaymentEvent) error {
	if m.RecordEventErr != nil {
		return m.RecordEventErr
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockStore) RecordCaptureFailure(_ context.Context, failure CaptureFailure) error {
	if m.RecordFailErr != nil {
		return m.RecordFailErr
	}
	m.Failures = append(m.Failures, failure)
	return nil
}

func (m *MockStore) ListCaptureFailures(_ context.Context, limit int) ([]CaptureFailure, error) {
	if m.ListFailErr != nil {
		return nil, m.ListFailErr
	}
	if limit < len(m.Failures) {
		return m.Failures[:limit], nil
	}
	return m.Failures, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
