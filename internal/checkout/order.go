package checkout

import "time"

type OrderStatus string

const (
	OrderStatusCreated           OrderStatus = "CREATED"
	OrderStatusSessionFailed     OrderStatus = "SESSION_FAILED"
	OrderStatusCompleted         OrderStatus = "COMPLETED"
	OrderStatusNeedsManualReview OrderStatus = "NEEDS_MANUAL_REVIEW"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusPaymentFailed     OrderStatus = "PAYMENT_FAILED"
)

// IsTerminal reports whether the order has reached a settled state. No
// provider call is ever made for an order in a terminal state.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusCreated
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return target != OrderStatusCreated
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	UnitPrice     int64             `json:"unit_price"`
	Quantity      int               `json:"quantity"`
	Customization map[string]string `json:"customization,omitempty"`
}

type Order struct {
	Reference      string      `json:"reference"`
	Status         OrderStatus `json:"status"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	ShippingMethod string      `json:"shipping_method"`
	ShippingCost   int64       `json:"shipping_cost"`
	Customer       Customer    `json:"customer"`
	Items          []OrderItem `json:"items"`
	Comments       string      `json:"comments,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}
