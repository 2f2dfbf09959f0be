package checkout

// AmountTolerance is how far, in øre, a client-submitted total may drift
// from the server-side recomputation and still be accepted. One major unit
// absorbs client-side rounding of VAT-inclusive display prices; the server
// still recomputes independently so a crafted total cannot pass.
const AmountTolerance int64 = 100

// ValidateAmount recomputes the order total from its lines plus shipping and
// checks the claimed total against it, inclusive at exactly the tolerance.
func ValidateAmount(claimed int64, items []OrderItem, shippingCost int64) error {
	var computed int64
	for _, item := range items {
		computed += item.UnitPrice * int64(item.Quantity)
	}
	computed += shippingCost

	diff := computed - claimed
	if diff < 0 {
		diff = -diff
	}
	if diff > AmountTolerance {
		return &AmountMismatchError{Claimed: claimed, Computed: computed}
	}
	return nil
}
