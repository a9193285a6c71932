package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/pagination"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

// ReviewService implements product reviews. Ratings feed the product's
// rounded aggregate (one decimal place); the repository maintains the
// aggregate atomically alongside each review write.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(reviews repository.ReviewRepository, products repository.ProductRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for posting a review.
type CreateReviewInput struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title  string `json:"title" validate:"max=200"`
	Body   string `json:"body" validate:"max=5000"`
}

// UpdateReviewInput holds the parameters for editing a review.
type UpdateReviewInput struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title  string `json:"title" validate:"max=200"`
	Body   string `json:"body" validate:"max=5000"`
}

// CreateReview posts a review for a product. A user may review each product
// at most once; a duplicate surfaces as a conflict.
func (s *ReviewService) CreateReview(ctx context.Context, userID, productID string, input *CreateReviewInput) (*domain.Review, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("review input is required")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	// Friendly pre-check; the (user, product) unique index remains the
	// authoritative gate under concurrent submissions.
	if _, err := s.reviews.GetByUserAndProduct(ctx, userID, productID); err == nil {
		return nil, apperrors.AlreadyExists("review", "product_id", productID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Title:     strings.TrimSpace(input.Title),
		Body:      strings.TrimSpace(input.Body),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// UpdateReview edits an existing review. Only the author may edit; the
// product aggregate is adjusted for the rating delta.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, userID string, input *UpdateReviewInput) (*domain.Review, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("review input is required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, apperrors.Forbidden("you can only edit your own reviews")
	}

	oldRating := review.Rating
	review.Rating = input.Rating
	review.Title = strings.TrimSpace(input.Title)
	review.Body = strings.TrimSpace(input.Body)
	review.UpdatedAt = time.Now().UTC()

	if err := s.reviews.Update(ctx, review, oldRating); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	return review, nil
}

// DeleteReview removes a review. The author or an admin may delete; the
// product aggregate is reduced accordingly.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID, role string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID && role != domain.RoleAdmin {
		return apperrors.Forbidden("you can only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, review); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// ListProductReviews returns a page of reviews for a product, newest first.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	return s.reviews.ListByProduct(ctx, productID, params.Page, params.PerPage)
}

// ListUserReviews returns all reviews written by the user.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}
