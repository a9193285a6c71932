// Package repository defines the persistence interfaces consumed by the
// service layer. PostgreSQL implementations live in the postgres
// subpackage; the cart store is Redis-backed and lives in the redis
// subpackage.
package repository

import (
	"context"

	"github.com/oakmart/storefront/internal/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Page     int
	PerPage  int
}

// Sort orders accepted by ProductSearchFilter. Anything else falls back to
// newest first.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

// ProductSearchFilter narrows and orders catalog searches. Every field is
// optional; a zero filter returns the whole catalog newest first. MinPrice
// and MaxPrice are in cents, zero means unbounded.
type ProductSearchFilter struct {
	Query    string
	Category string
	MinPrice int64
	MaxPrice int64
	Sort     string
	Page     int
	PerPage  int
}

// ProductRepository persists catalog entities and owns the atomic stock and
// rating-aggregate primitives. DecrementStock is conditional: it succeeds
// only when the remaining stock covers the quantity, so it is the real gate
// against oversell.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	Search(ctx context.Context, filter ProductSearchFilter) ([]domain.Product, int, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error

	// DecrementStock atomically subtracts quantity when stock >= quantity.
	// Returns errors.ErrConflict when the condition fails and ErrNotFound
	// when the product does not exist.
	DecrementStock(ctx context.Context, id string, quantity int) error
	// IncrementStock adds quantity back (compensation credit).
	IncrementStock(ctx context.Context, id string, quantity int) error
}

// DiscountRepository persists promotional codes. Redeem and Unredeem are
// atomic single-statement updates; Redeem is conditional on the usage limit.
type DiscountRepository interface {
	Create(ctx context.Context, discount *domain.Discount) error
	GetByID(ctx context.Context, id string) (*domain.Discount, error)
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
	List(ctx context.Context, page, perPage int) ([]domain.Discount, int, error)
	Update(ctx context.Context, discount *domain.Discount) error
	Delete(ctx context.Context, id string) error

	// Redeem increments used_count only while under max_uses; returns
	// errors.ErrConflict when the limit has been reached.
	Redeem(ctx context.Context, id string) error
	// Unredeem decrements used_count (saga compensation), never below zero.
	Unredeem(ctx context.Context, id string) error
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID  string
	Status  string
	Page    int
	PerPage int
}

// OrderRepository persists orders. Delete exists solely for checkout
// compensation: an order whose stock decrements failed is removed again.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	Delete(ctx context.Context, id string) error
}

// ReviewRepository persists reviews and maintains the owning product's
// rating aggregate in the same operation.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	GetByUserAndProduct(ctx context.Context, userID, productID string) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
	Update(ctx context.Context, review *domain.Review, oldRating int) error
	Delete(ctx context.Context, review *domain.Review) error
}

// CartRepository persists carts keyed by user ID.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}
