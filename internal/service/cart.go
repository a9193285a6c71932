package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/repository"
)

// CartService implements cart mutation logic. Lines capture the product's
// unit price at add time; the cart total is always recomputed from its
// lines, so total == Σ(quantity × price) holds after every mutation.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer EventPublisher
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer EventPublisher, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemInput holds the parameters for replacing a line's quantity.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// AddItem adds a product to the user's cart. Re-adding a product merges
// quantities into the existing line; the merged quantity must still be
// covered by stock.
func (s *CartService) AddItem(ctx context.Context, userID string, input *AddItemInput) (*domain.Cart, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("cart input is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		cart = domain.NewCart(userID)
		cart.ID = uuid.New().String()
	}

	idx := cart.FindItemIndex(input.ProductID)
	newQuantity := input.Quantity
	if idx >= 0 {
		newQuantity += cart.Items[idx].Quantity
	}

	if !product.HasStock(newQuantity) {
		return nil, apperrors.InsufficientStock(product.Title, product.Stock)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = newQuantity
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  input.Quantity,
			ImageURL:  product.ImageURL,
		})
	}
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publishCartEvent(ctx, event.EventCartItemAdded, cart, input.ProductID, input.Quantity)

	return cart, nil
}

// UpdateItem replaces the quantity of an existing cart line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, input *UpdateItemInput) (*domain.Cart, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("cart input is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !product.HasStock(input.Quantity) {
		return nil, apperrors.InsufficientStock(product.Title, product.Stock)
	}

	cart.Items[idx].Quantity = input.Quantity
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.publishCartEvent(ctx, event.EventCartItemUpdated, cart, productID, input.Quantity)

	return cart, nil
}

// RemoveItem removes a line from the cart. Removing the last line deletes
// the cart entity itself.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItemIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}

	cart.RemoveItem(idx)
	cart.UpdatedAt = time.Now().UTC()

	if cart.IsEmpty() {
		if err := s.carts.Delete(ctx, userID); err != nil {
			return nil, fmt.Errorf("delete cart: %w", err)
		}
	} else {
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
	}

	s.publishCartEvent(ctx, event.EventCartItemRemoved, cart, productID, 0)

	return cart, nil
}

// GetCart returns the user's cart, or an empty cart shape when none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// publishCartEvent publishes best-effort; failures are logged and swallowed.
func (s *CartService) publishCartEvent(ctx context.Context, eventType string, cart *domain.Cart, productID string, quantity int) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishCartEvent(ctx, eventType, cart, productID, quantity); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart event",
			slog.String("event_type", eventType),
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}
