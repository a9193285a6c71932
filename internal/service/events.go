package service

import (
	"context"

	"github.com/oakmart/storefront/internal/domain"
)

// EventPublisher publishes domain events. *event.Producer satisfies it.
// Publishing is always best-effort: services log failures and continue.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishCartEvent(ctx context.Context, eventType string, cart *domain.Cart, productID string, quantity int) error
}
