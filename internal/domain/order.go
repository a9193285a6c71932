package domain

import "time"

// Order status state machine: pending → processing → shipped → delivered,
// or pending → cancelled.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is an immutable purchase snapshot. Item prices are captured at
// checkout time and never change with later catalog edits. Amounts are in
// cents.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	SubtotalAmount  int64       `json:"subtotal_amount"`
	DiscountCode    string      `json:"discount_code,omitempty"`
	DiscountAmount  int64       `json:"discount_amount"`
	TotalAmount     int64       `json:"total_amount"`
	ShippingAddress Address     `json:"shipping_address"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem is one purchased line: product, quantity, and unit price at
// time of purchase.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Address is a shipping destination, stored as JSONB on the order.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// IsComplete reports whether all required address fields are present.
func (a *Address) IsComplete() bool {
	return a.FullName != "" && a.AddressLine != "" && a.City != "" &&
		a.PostalCode != "" && a.Country != ""
}
