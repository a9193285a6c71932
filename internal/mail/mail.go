// Package mail sends transactional email. Checkout treats delivery as
// best-effort: failures are logged by the caller and never fail the order.
package mail

import "context"

// LineItem is one purchased line rendered into the confirmation body.
type LineItem struct {
	Title    string
	Quantity int
	Price    int64
}

// OrderConfirmation carries everything needed to render and address an
// order-confirmation message. Amounts are in cents.
type OrderConfirmation struct {
	OrderID        string
	RecipientName  string
	RecipientEmail string
	Items          []LineItem
	SubtotalAmount int64
	DiscountCode   string
	DiscountAmount int64
	TotalAmount    int64
}

// Sender delivers order-confirmation messages.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, conf *OrderConfirmation) error
}
