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
	"github.com/oakmart/storefront/internal/mail"
	"github.com/oakmart/storefront/internal/repository"
)

// CheckoutService orchestrates the cart→order transition as a saga with
// ordered compensation. Durable effects are applied in the order
// redeem discount → create order → decrement stock → clear cart; when a
// stock decrement fails, every effect already applied is reversed in
// reverse order before the failure is surfaced.
type CheckoutService struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	discounts repository.DiscountRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	producer  EventPublisher
	mailer    mail.Sender
	logger    *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	discounts repository.DiscountRepository,
	orders repository.OrderRepository,
	users repository.UserRepository,
	producer EventPublisher,
	mailer mail.Sender,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		products:  products,
		discounts: discounts,
		orders:    orders,
		users:     users,
		producer:  producer,
		mailer:    mailer,
		logger:    logger,
	}
}

// CheckoutInput holds the parameters for placing an order.
type CheckoutInput struct {
	ShippingAddress domain.Address `json:"shipping_address" validate:"required"`
	DiscountCode    string         `json:"discount_code" validate:"omitempty,max=40"`
}

// compensation is one undo action recorded after a durable effect succeeds.
type compensation struct {
	step *domain.SagaStep
	undo func(ctx context.Context) error
}

// Checkout places an order from the user's cart.
//
// Validation happens against a snapshot: the cart must be non-empty and
// every line must be covered by current stock. The snapshot check exists to
// fail fast with a message naming the product; the authoritative oversell
// gate is the conditional decrement inside the persistence sequence.
//
// A supplied discount code that is unknown, inactive, expired, exhausted,
// or below its minimum purchase is skipped silently and checkout proceeds
// without it.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, input *CheckoutInput) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input == nil {
		return nil, apperrors.InvalidInput("checkout input is required")
	}
	if !input.ShippingAddress.IsComplete() {
		return nil, apperrors.InvalidInput("shipping address is incomplete")
	}

	// Load the cart; a missing cart checks out the same as an empty one.
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	// Snapshot stock check and pricing. Order items capture the catalog
	// price at checkout time, decoupled from later price edits.
	var subtotal int64
	items := make([]domain.OrderItem, 0, len(cart.Items))
	lineProducts := make(map[string]*domain.Product, len(cart.Items))

	for _, line := range cart.Items {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %s: %w", line.ProductID, err)
		}
		if !product.HasStock(line.Quantity) {
			return nil, apperrors.InsufficientStock(product.Title, product.Stock)
		}

		subtotal += product.Price * int64(line.Quantity)
		items = append(items, domain.OrderItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
		lineProducts[product.ID] = product
	}

	discount := s.resolveDiscount(ctx, input.DiscountCode, subtotal)

	var discountAmount int64
	var discountCode string
	if discount != nil {
		discountAmount = discount.DiscountAmount(subtotal)
		discountCode = discount.Code
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		Items:           items,
		SubtotalAmount:  subtotal,
		DiscountCode:    discountCode,
		DiscountAmount:  discountAmount,
		TotalAmount:     subtotal - discountAmount,
		ShippingAddress: input.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	var undoLog []compensation

	// Step 1: redeem the discount. The conditional increment can lose a
	// race against a concurrent checkout exhausting the code; that is the
	// same outcome as an exhausted code at validation time, so the
	// discount is dropped and checkout continues.
	redeemStep := domain.NewSagaStep(domain.SagaStepRedeemDiscount)
	if discount != nil {
		if err := s.discounts.Redeem(ctx, discount.ID); err != nil {
			if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "discount no longer redeemable, proceeding without it",
					slog.String("code", discount.Code),
				)
				order.DiscountCode = ""
				order.DiscountAmount = 0
				order.TotalAmount = subtotal
			} else {
				return nil, fmt.Errorf("redeem discount: %w", err)
			}
		} else {
			redeemStep.Complete()
			discountID := discount.ID
			undoLog = append(undoLog, compensation{
				step: &redeemStep,
				undo: func(ctx context.Context) error { return s.discounts.Unredeem(ctx, discountID) },
			})
		}
	}

	// Step 2: persist the order (status pending).
	createStep := domain.NewSagaStep(domain.SagaStepCreateOrder)
	if err := s.orders.Create(ctx, order); err != nil {
		createStep.Fail(err.Error())
		s.compensate(ctx, undoLog)
		return nil, fmt.Errorf("create order: %w", err)
	}
	createStep.Complete()
	orderID := order.ID
	undoLog = append(undoLog, compensation{
		step: &createStep,
		undo: func(ctx context.Context) error { return s.orders.Delete(ctx, orderID) },
	})

	// Step 3: decrement stock per line. Each successful decrement joins
	// the undo log before the next is attempted, so a failure part-way
	// restores exactly the lines already taken.
	decrementStep := domain.NewSagaStep(domain.SagaStepDecrementStock)
	for _, line := range cart.Items {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			decrementStep.Fail(err.Error())
			s.compensate(ctx, undoLog)
			s.logger.ErrorContext(ctx, "checkout rolled back on stock decrement failure",
				slog.String("order_id", order.ID),
				slog.String("product_id", line.ProductID),
				slog.String("error", err.Error()),
			)
			return nil, apperrors.StockUpdate(err)
		}
		productID, quantity := line.ProductID, line.Quantity
		undoLog = append(undoLog, compensation{
			step: &decrementStep,
			undo: func(ctx context.Context) error { return s.products.IncrementStock(ctx, productID, quantity) },
		})
	}
	decrementStep.Complete()

	// Step 4: clear the cart. The cart entity persists, empty. A failure
	// here is logged, not surfaced: the order and stock effects are
	// already durable and valid.
	clearStep := domain.NewSagaStep(domain.SagaStepClearCart)
	cart.Items = []domain.CartItem{}
	cart.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, cart); err != nil {
		clearStep.Fail(err.Error())
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("order_id", order.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		clearStep.Complete()
	}

	// Step 5: best-effort notification and event. Failures never fail the
	// checkout and never roll anything back.
	s.notify(ctx, order, lineProducts)

	if s.producer != nil {
		if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.created event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.String("discount_code", order.DiscountCode),
	)

	return order, nil
}

// resolveDiscount looks up and validates a discount code for checkout.
// Any failure — unknown code, inactive, expired, exhausted, below minimum —
// returns nil: checkout degrades gracefully instead of blocking the
// purchase. The standalone validation endpoint is the strict counterpart.
func (s *CheckoutService) resolveDiscount(ctx context.Context, code string, subtotal int64) *domain.Discount {
	if code == "" {
		return nil
	}

	discount, err := s.discounts.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "discount lookup failed, proceeding without discount",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if err := discount.Validate(subtotal, time.Now().UTC()); err != nil {
		s.logger.InfoContext(ctx, "discount code not applicable, proceeding without it",
			slog.String("code", discount.Code),
			slog.String("reason", err.Error()),
		)
		return nil
	}

	return discount
}

// compensate runs the undo log in reverse order. Compensation failures are
// logged and skipped; the remaining undos still run.
func (s *CheckoutService) compensate(ctx context.Context, undoLog []compensation) {
	for i := len(undoLog) - 1; i >= 0; i-- {
		if err := undoLog[i].undo(ctx); err != nil {
			s.logger.ErrorContext(ctx, "compensation failed",
				slog.String("step", undoLog[i].step.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		undoLog[i].step.Compensate()
	}
}

// notify sends the order confirmation best-effort.
func (s *CheckoutService) notify(ctx context.Context, order *domain.Order, products map[string]*domain.Product) {
	if s.mailer == nil {
		return
	}

	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load user for confirmation email",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	lineItems := make([]mail.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		title := item.Title
		if p, ok := products[item.ProductID]; ok {
			title = p.Title
		}
		lineItems = append(lineItems, mail.LineItem{
			Title:    title,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	conf := &mail.OrderConfirmation{
		OrderID:        order.ID,
		RecipientName:  user.Name,
		RecipientEmail: user.Email,
		Items:          lineItems,
		SubtotalAmount: order.SubtotalAmount,
		DiscountCode:   order.DiscountCode,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    order.TotalAmount,
	}

	if err := s.mailer.SendOrderConfirmation(ctx, conf); err != nil {
		s.logger.ErrorContext(ctx, "failed to send order confirmation",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}
