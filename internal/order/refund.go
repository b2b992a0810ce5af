package order

// Refund policy windows, measured in calendar days since purchase.
const (
	fullRefundWindowDays    = 7
	partialRefundWindowDays = 14
	partialRefundPercent    = 90
)

// Quote is the outcome of applying the refund policy to an order.
type Quote struct {
	Eligible bool
	// Amount is the refundable amount in the store currency's minor-free
	// integer unit. Zero when ineligible.
	Amount int
	// Rate is the applied percentage (100, 90, or 0).
	Rate int
}

// RefundQuote applies the refund policy to a price and purchase age.
// Within 7 days the full price is refunded; from day 8 through day 14 the
// refund is 90% rounded down; after 14 days the order is ineligible.
// Negative ages are treated as day zero. Pure function, no side effects.
func RefundQuote(price, daysSincePurchase int) Quote {
	if daysSincePurchase < 0 {
		daysSincePurchase = 0
	}
	switch {
	case daysSincePurchase <= fullRefundWindowDays:
		return Quote{Eligible: true, Amount: price, Rate: 100}
	case daysSincePurchase <= partialRefundWindowDays:
		return Quote{Eligible: true, Amount: price * partialRefundPercent / 100, Rate: partialRefundPercent}
	default:
		return Quote{}
	}
}
