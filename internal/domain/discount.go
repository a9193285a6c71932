package domain

import (
	"strings"
	"time"
)

// Discount type constants.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Discount is a promotional code. Value is a percent for percentage-type
// codes and an amount in cents for fixed-type codes. MaxUses nil means
// unlimited; ValidFrom/ValidUntil nil mean unbounded.
type Discount struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	Value       int64      `json:"value"`
	MinPurchase int64      `json:"min_purchase"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	UsedCount   int        `json:"used_count"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NormalizeCode uppercases and trims a discount code. Codes are stored and
// looked up in this normalized form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExpired reports whether the code is outside its validity window at t.
func (d *Discount) IsExpired(t time.Time) bool {
	if d.ValidFrom != nil && t.Before(*d.ValidFrom) {
		return true
	}
	if d.ValidUntil != nil && t.After(*d.ValidUntil) {
		return true
	}
	return false
}

// IsExhausted reports whether the code has reached its usage limit.
func (d *Discount) IsExhausted() bool {
	return d.MaxUses != nil && d.UsedCount >= *d.MaxUses
}

// MeetsMinPurchase reports whether the subtotal satisfies the code's
// minimum purchase requirement.
func (d *Discount) MeetsMinPurchase(subtotal int64) bool {
	return subtotal >= d.MinPurchase
}

// DiscountAmount computes the discount for the given subtotal in cents.
// Percentage codes yield subtotal × value / 100; fixed codes never exceed
// the subtotal so the total cannot go negative.
func (d *Discount) DiscountAmount(subtotal int64) int64 {
	switch d.Type {
	case DiscountTypePercentage:
		return subtotal * d.Value / 100
	case DiscountTypeFixed:
		if d.Value > subtotal {
			return subtotal
		}
		return d.Value
	default:
		return 0
	}
}

// Validate checks all redemption conditions against the subtotal at t.
// It returns nil when the code is redeemable.
func (d *Discount) Validate(subtotal int64, t time.Time) error {
	if !d.Active {
		return ErrDiscountInactive
	}
	if d.IsExpired(t) {
		return ErrDiscountExpired
	}
	if d.IsExhausted() {
		return ErrDiscountExhausted
	}
	if !d.MeetsMinPurchase(subtotal) {
		return ErrDiscountMinPurchase
	}
	return nil
}
