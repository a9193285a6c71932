package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/pagination"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

// DiscountService implements promotional code management and the standalone
// validation check. Validation here reports explicit failure reasons; the
// checkout workflow deliberately does the opposite and skips bad codes
// silently.
type DiscountService struct {
	discounts repository.DiscountRepository
	carts     repository.CartRepository
	logger    *slog.Logger
}

// NewDiscountService creates a new discount service.
func NewDiscountService(discounts repository.DiscountRepository, carts repository.CartRepository, logger *slog.Logger) *DiscountService {
	return &DiscountService{
		discounts: discounts,
		carts:     carts,
		logger:    logger,
	}
}

// CreateDiscountInput holds the parameters for creating a code.
type CreateDiscountInput struct {
	Code        string     `json:"code" validate:"required,min=3,max=40"`
	Type        string     `json:"type" validate:"required,oneof=percentage fixed"`
	Value       int64      `json:"value" validate:"required,gt=0"`
	MinPurchase int64      `json:"min_purchase" validate:"gte=0"`
	MaxUses     *int       `json:"max_uses" validate:"omitempty,gt=0"`
	ValidFrom   *time.Time `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
	Active      bool       `json:"active"`
}

// ValidateCodeInput holds the parameters for the standalone validation check.
// CartTotal is optional; when absent the caller's live cart total is used.
type ValidateCodeInput struct {
	Code      string `json:"code" validate:"required"`
	CartTotal *int64 `json:"cart_total" validate:"omitempty,gte=0"`
}

// ValidateCodeResult reports the outcome of a successful validation.
type ValidateCodeResult struct {
	Code           string `json:"code"`
	Type           string `json:"type"`
	Value          int64  `json:"value"`
	DiscountAmount int64  `json:"discount_amount"`
}

// CreateDiscount adds a new promotional code. The code is stored uppercased.
func (s *DiscountService) CreateDiscount(ctx context.Context, input *CreateDiscountInput) (*domain.Discount, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("discount input is required")
	}
	if input.Type == domain.DiscountTypePercentage && input.Value > 100 {
		return nil, apperrors.InvalidInput("percentage value cannot exceed 100")
	}

	now := time.Now().UTC()
	discount := &domain.Discount{
		ID:          uuid.New().String(),
		Code:        domain.NormalizeCode(input.Code),
		Type:        input.Type,
		Value:       input.Value,
		MinPurchase: input.MinPurchase,
		MaxUses:     input.MaxUses,
		ValidFrom:   input.ValidFrom,
		ValidUntil:  input.ValidUntil,
		Active:      input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.discounts.Create(ctx, discount); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "discount created",
		slog.String("discount_id", discount.ID),
		slog.String("code", discount.Code),
	)

	return discount, nil
}

// GetDiscount retrieves a discount by ID.
func (s *DiscountService) GetDiscount(ctx context.Context, id string) (*domain.Discount, error) {
	return s.discounts.GetByID(ctx, id)
}

// ListDiscounts returns a page of discounts.
func (s *DiscountService) ListDiscounts(ctx context.Context, params pagination.Params) ([]domain.Discount, int, error) {
	return s.discounts.List(ctx, params.Page, params.PerPage)
}

// UpdateDiscount replaces the mutable fields of a discount.
func (s *DiscountService) UpdateDiscount(ctx context.Context, id string, input *CreateDiscountInput) (*domain.Discount, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("discount input is required")
	}
	if input.Type == domain.DiscountTypePercentage && input.Value > 100 {
		return nil, apperrors.InvalidInput("percentage value cannot exceed 100")
	}

	discount, err := s.discounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	discount.Code = domain.NormalizeCode(input.Code)
	discount.Type = input.Type
	discount.Value = input.Value
	discount.MinPurchase = input.MinPurchase
	discount.MaxUses = input.MaxUses
	discount.ValidFrom = input.ValidFrom
	discount.ValidUntil = input.ValidUntil
	discount.Active = input.Active
	discount.UpdatedAt = time.Now().UTC()

	if err := s.discounts.Update(ctx, discount); err != nil {
		return nil, err
	}

	return discount, nil
}

// DeleteDiscount removes a discount code.
func (s *DiscountService) DeleteDiscount(ctx context.Context, id string) error {
	return s.discounts.Delete(ctx, id)
}

// ValidateCode checks whether a code would apply to the given cart total
// without redeeming it. Each failed condition surfaces as a distinct error.
func (s *DiscountService) ValidateCode(ctx context.Context, userID string, input *ValidateCodeInput) (*ValidateCodeResult, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("validation input is required")
	}

	subtotal, err := s.resolveCartTotal(ctx, userID, input.CartTotal)
	if err != nil {
		return nil, err
	}

	discount, err := s.discounts.GetByCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.AppError{
				Code:    "NOT_FOUND",
				Message: "discount code not found",
				Status:  http.StatusNotFound,
				Err:     apperrors.ErrNotFound,
			}
		}
		return nil, fmt.Errorf("get discount by code: %w", err)
	}

	switch err := discount.Validate(subtotal, time.Now().UTC()); {
	case err == nil:
	case errors.Is(err, domain.ErrDiscountInactive):
		// Inactive codes are indistinguishable from unknown ones.
		return nil, &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: "discount code not found",
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case errors.Is(err, domain.ErrDiscountExpired):
		return nil, apperrors.DiscountExpired(discount.Code)
	case errors.Is(err, domain.ErrDiscountExhausted):
		return nil, apperrors.DiscountUsageLimit(discount.Code)
	case errors.Is(err, domain.ErrDiscountMinPurchase):
		return nil, apperrors.DiscountMinPurchase(discount.Code, discount.MinPurchase)
	default:
		return nil, fmt.Errorf("validate discount: %w", err)
	}

	return &ValidateCodeResult{
		Code:           discount.Code,
		Type:           discount.Type,
		Value:          discount.Value,
		DiscountAmount: discount.DiscountAmount(subtotal),
	}, nil
}

// resolveCartTotal prefers the explicit total and falls back to the user's
// live cart.
func (s *DiscountService) resolveCartTotal(ctx context.Context, userID string, explicit *int64) (int64, error) {
	if explicit != nil {
		return *explicit, nil
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get cart for validation: %w", err)
	}

	return cart.TotalPrice(), nil
}
