package event

import (
	"context"
	"fmt"

	"github.com/oakmart/storefront/pkg/kafka"
	"github.com/oakmart/storefront/pkg/logger"

	"github.com/oakmart/storefront/internal/domain"
)

const (
	// Topics for storefront domain events.
	TopicOrders = "storefront.orders"
	TopicCarts  = "storefront.carts"

	source = "storefront"
)

// Event type constants.
const (
	EventOrderCreated    = "order.created"
	EventCartItemAdded   = "cart.item_added"
	EventCartItemUpdated = "cart.item_updated"
	EventCartItemRemoved = "cart.item_removed"
)

// Producer publishes storefront domain events to Kafka. All publishing is
// best-effort from the caller's perspective: services log failures and
// continue.
type Producer struct {
	producer *kafka.Producer
}

// NewProducer creates a new domain event producer.
func NewProducer(producer *kafka.Producer) *Producer {
	return &Producer{producer: producer}
}

// OrderCreatedData is the payload of an order.created event.
type OrderCreatedData struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	ItemCount      int    `json:"item_count"`
	SubtotalAmount int64  `json:"subtotal_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	TotalAmount    int64  `json:"total_amount"`
	DiscountCode   string `json:"discount_code,omitempty"`
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:        order.ID,
		UserID:         order.UserID,
		ItemCount:      len(order.Items),
		SubtotalAmount: order.SubtotalAmount,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    order.TotalAmount,
		DiscountCode:   order.DiscountCode,
	}

	evt, err := kafka.NewEvent(EventOrderCreated, order.ID, "order", source, data)
	if err != nil {
		return fmt.Errorf("build order.created event: %w", err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	return p.producer.Publish(ctx, TopicOrders, evt)
}

// CartEventData is the payload of cart mutation events.
type CartEventData struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
	ItemCount int    `json:"item_count"`
	Total     int64  `json:"total"`
}

// PublishCartEvent publishes a cart mutation event keyed by user.
func (p *Producer) PublishCartEvent(ctx context.Context, eventType string, cart *domain.Cart, productID string, quantity int) error {
	data := CartEventData{
		UserID:    cart.UserID,
		ProductID: productID,
		Quantity:  quantity,
		ItemCount: cart.ItemCount(),
		Total:     cart.TotalPrice(),
	}

	evt, err := kafka.NewEvent(eventType, cart.UserID, "cart", source, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	return p.producer.Publish(ctx, TopicCarts, evt)
}
