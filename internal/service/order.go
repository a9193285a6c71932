package service

import (
	"context"
	"log/slog"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/pagination"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

// OrderService implements order retrieval. Orders are created through the
// checkout workflow, never directly.
type OrderService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		logger: logger,
	}
}

// ListOrders returns a page of the user's own orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, status string, params pagination.Params) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{
		UserID:  userID,
		Status:  status,
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	return s.orders.List(ctx, filter)
}

// GetOrder retrieves a single order. Non-admin callers may only read their
// own orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID, role string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID && role != domain.RoleAdmin {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}

	return order, nil
}
