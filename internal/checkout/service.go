package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentProvider is the outbound boundary to the payment rails. The vipps
// package implements it; tests fake it.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, payment ProviderPayment) (*ProviderSession, error)
	GetPayment(ctx context.Context, reference string) (*ProviderStatus, error)
	Capture(ctx context.Context, reference string, amount int64, description string) error
	Cancel(ctx context.Context, reference string) error
}

type ProviderPayment struct {
	Reference   string
	Amount      int64
	Currency    string
	Description string
	ReturnURL   string
	Phone       string
}

type ProviderSession struct {
	Reference   string
	RedirectURL string
}

type ProviderStatus struct {
	State            string
	AuthorizedAmount int64
	Currency         string
	Raw              json.RawMessage
}

// OrderStore is the persistence boundary for orders and the payment audit
// trail. CompleteOrder and RecordCaptureFailure also stage the corresponding
// outbox event inside the same transaction.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByReference(ctx context.Context, reference string) (*Order, error)
	SetOrderStatus(ctx context.Context, reference string, status OrderStatus) error
	CompleteOrder(ctx context.Context, reference string) error
	RecordPaymentEvent(ctx context.Context, event PaymentEvent) error
	RecordCaptureFailure(ctx context.Context, failure CaptureFailure) error
	ListCaptureFailures(ctx context.Context, limit int) ([]CaptureFailure, error)
}

type PaymentEvent struct {
	Reference string
	EventType string
	Amount    int64
	Payload   json.RawMessage
	CreatedAt time.Time
}

type CaptureFailure struct {
	Reference string
	Amount    int64
	Reason    string
	CreatedAt time.Time
}

// Draft is the order as submitted by the storefront, before validation.
type Draft struct {
	Items          []OrderItem
	ShippingMethod string
	ShippingCost   int64
	Amount         int64
	Currency       string
	Comments       string
}

type InitiateResult struct {
	Reference   string
	RedirectURL string
}

type SettleResult struct {
	Outcome         Outcome
	CaptureRecorded bool
}

type Config struct {
	ReturnURL string
	Currency  string
	// OptimisticCapture keeps the user-visible outcome a success when the
	// capture call itself fails on an authorized payment. The funds are held
	// either way; turning this off makes the failure surface to the caller.
	OptimisticCapture bool
}

type Service struct {
	provider PaymentProvider
	store    OrderStore
	validate *validator.Validate
	log      *logrus.Logger
	cfg      Config
}

func NewService(provider PaymentProvider, store OrderStore, log *logrus.Logger, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "DKK"
	}
	return &Service{
		provider: provider,
		store:    store,
		validate: validator.New(),
		log:      log,
		cfg:      cfg,
	}
}

// Initiate validates a draft, persists the order and opens a payment session
// with the provider. Exactly one create-payment call is made per invocation.
func (s *Service) Initiate(ctx context.Context, draft Draft, customer Customer) (*InitiateResult, error) {
	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := s.validate.Struct(customer); err != nil {
		return nil, fmt.Errorf("invalid customer: %w", err)
	}
	customer.Phone = NormalizePhone(customer.Phone)

	if err := ValidateAmount(draft.Amount, draft.Items, draft.ShippingCost); err != nil {
		return nil, err
	}

	currency := draft.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	reference := newReference()
	order := &Order{
		Reference:      reference,
		Status:         OrderStatusCreated,
		Amount:         draft.Amount,
		Currency:       currency,
		ShippingMethod: draft.ShippingMethod,
		ShippingCost:   draft.ShippingCost,
		Customer:       customer,
		Items:          draft.Items,
		Comments:       draft.Comments,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	session, err := s.provider.CreatePayment(ctx, ProviderPayment{
		Reference:   reference,
		Amount:      draft.Amount,
		Currency:    currency,
		Description: paymentDescription(draft.Items),
		ReturnURL:   s.cfg.ReturnURL,
		Phone:       customer.Phone,
	})
	if err != nil {
		if errStatus := s.store.SetOrderStatus(ctx, reference, OrderStatusSessionFailed); errStatus != nil {
			s.log.WithError(errStatus).WithField("reference", reference).Error("failed to mark order session failed")
		}
		return nil, err
	}

	s.recordEvent(ctx, PaymentEvent{
		Reference: reference,
		EventType: "payment.created",
		Amount:    draft.Amount,
		CreatedAt: time.Now(),
	})

	s.log.WithFields(logrus.Fields{
		"reference": reference,
		"amount":    draft.Amount,
	}).Info("payment session created")

	return &InitiateResult{Reference: reference, RedirectURL: session.RedirectURL}, nil
}

// ResolveAndSettle looks up the payment's provider state once and settles the
// order accordingly. An order already in a terminal state is answered from
// storage without touching the provider, so a completion page reloading never
// causes a second capture.
func (s *Service) ResolveAndSettle(ctx context.Context, reference string) (*SettleResult, error) {
	order, err := s.store.GetOrderByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		return settledResult(order.Status), nil
	}

	status, err := s.provider.GetPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, PaymentEvent{
		Reference: reference,
		EventType: "payment.status_checked",
		Payload:   status.Raw,
		CreatedAt: time.Now(),
	})

	outcome := MapProviderState(status.State)
	switch outcome {
	case OutcomeCaptured:
		// Captured out of band, e.g. by a provider webhook.
		if err := s.store.CompleteOrder(ctx, reference); err != nil {
			return nil, fmt.Errorf("complete order: %w", err)
		}
		return &SettleResult{Outcome: OutcomeCaptured}, nil

	case OutcomeCancelled:
		if err := s.store.SetOrderStatus(ctx, reference, OrderStatusCancelled); err != nil {
			return nil, fmt.Errorf("set order status: %w", err)
		}
		return &SettleResult{Outcome: OutcomeCancelled}, nil

	case OutcomeAuthorized:
		return s.capture(ctx, order, status)

	default:
		if err := s.store.SetOrderStatus(ctx, reference, OrderStatusPaymentFailed); err != nil {
			return nil, fmt.Errorf("set order status: %w", err)
		}
		return &SettleResult{Outcome: OutcomeFailed}, nil
	}
}

// capture issues the single capture attempt for an authorized payment. The
// amount is the one the provider reports as authorized, never the client
// total, so a stale or tampered submission cannot be captured.
func (s *Service) capture(ctx context.Context, order *Order, status *ProviderStatus) (*SettleResult, error) {
	amount := status.AuthorizedAmount
	if amount == 0 {
		amount = order.Amount
	}

	err := s.provider.Capture(ctx, order.Reference, amount, paymentDescription(order.Items))
	if err == nil {
		s.recordEvent(ctx, PaymentEvent{
			Reference: order.Reference,
			EventType: "payment.captured",
			Amount:    amount,
			CreatedAt: time.Now(),
		})
		if errComplete := s.store.CompleteOrder(ctx, order.Reference); errComplete != nil {
			return nil, fmt.Errorf("complete order: %w", errComplete)
		}
		return &SettleResult{Outcome: OutcomeCaptured}, nil
	}

	s.log.WithError(err).WithFields(logrus.Fields{
		"reference": order.Reference,
		"amount":    amount,
	}).Error("payment capture failed")

	// A failed failure-record write is logged, not propagated; the funds stay
	// authorized and held either way.
	if errRecord := s.store.RecordCaptureFailure(ctx, CaptureFailure{
		Reference: order.Reference,
		Amount:    amount,
		Reason:    err.Error(),
		CreatedAt: time.Now(),
	}); errRecord != nil {
		s.log.WithError(errRecord).WithField("reference", order.Reference).Error("failed to record capture failure")
	}
	if errStatus := s.store.SetOrderStatus(ctx, order.Reference, OrderStatusNeedsManualReview); errStatus != nil {
		s.log.WithError(errStatus).WithField("reference", order.Reference).Error("failed to mark order for manual review")
	}

	if !s.cfg.OptimisticCapture {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	return &SettleResult{Outcome: OutcomeAuthorized, CaptureRecorded: true}, nil
}

// Cancel voids an authorized payment that has not settled. Operator-facing;
// the browser flow never calls it.
func (s *Service) Cancel(ctx context.Context, reference string) error {
	order, err := s.store.GetOrderByReference(ctx, reference)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(OrderStatusCancelled) {
		return fmt.Errorf("order %s is already %s", reference, order.Status)
	}

	if err := s.provider.Cancel(ctx, reference); err != nil {
		return err
	}

	if err := s.store.SetOrderStatus(ctx, reference, OrderStatusCancelled); err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	s.recordEvent(ctx, PaymentEvent{
		Reference: reference,
		EventType: "payment.cancelled",
		CreatedAt: time.Now(),
	})
	return nil
}

// CaptureFailures lists recorded capture failures for operator review,
// newest first.
func (s *Service) CaptureFailures(ctx context.Context, limit int) ([]CaptureFailure, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListCaptureFailures(ctx, limit)
}

func (s *Service) recordEvent(ctx context.Context, event PaymentEvent) {
	if err := s.store.RecordPaymentEvent(ctx, event); err != nil {
		s.log.WithError(err).WithField("reference", event.Reference).Warn("failed to record payment event")
	}
}

func settledResult(status OrderStatus) *SettleResult {
	switch status {
	case OrderStatusCompleted:
		return &SettleResult{Outcome: OutcomeCaptured}
	case OrderStatusNeedsManualReview:
		return &SettleResult{Outcome: OutcomeAuthorized, CaptureRecorded: true}
	case OrderStatusCancelled:
		return &SettleResult{Outcome: OutcomeCancelled}
	default:
		return &SettleResult{Outcome: OutcomeFailed}
	}
}

func newReference() string {
	return "order-" + uuid.NewString()[:8]
}

func paymentDescription(items []OrderItem) string {
	var n int
	for _, item := range items {
		n += item.Quantity
	}
	if n == 1 {
		return "MemoryBear order, 1 item"
	}
	return fmt.Sprintf("MemoryBear order, %d items", n)
}
