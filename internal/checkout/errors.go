package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder          = errors.New("order has no items")
	ErrOrderNotFound       = errors.New("order not found")
	ErrUpstreamUnavailable = errors.New("payment provider unavailable")
	ErrCaptureFailed       = errors.New("payment capture failed")
)

// AmountMismatchError is returned when the client-submitted total disagrees
// with the server-side recomputation beyond the accepted tolerance. Both
// values are carried for the audit trail.
type AmountMismatchError struct {
	Claimed  int64
	Computed int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: claimed %d, computed %d", e.Claimed, e.Computed)
}

// PaymentRejectedError wraps a structured decline from the provider. The raw
// body is preserved so operators can see exactly what the provider said.
type PaymentRejectedError struct {
	Status int
	Body   string
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment rejected by provider (status %d): %s", e.Status, e.Body)
}
