package domain

import "errors"

// Discount validation failure reasons. The standalone validation endpoint
// maps these to explicit error responses; the checkout workflow treats any
// of them as "skip the discount" and proceeds without one.
var (
	ErrDiscountInactive    = errors.New("discount code is not active")
	ErrDiscountExpired     = errors.New("discount code has expired")
	ErrDiscountExhausted   = errors.New("discount code has reached its usage limit")
	ErrDiscountMinPurchase = errors.New("cart total is below the minimum purchase amount")
)
