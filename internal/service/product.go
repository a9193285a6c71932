package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/pagination"
	"github.com/oakmart/storefront/pkg/slug"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

// ProductService implements catalog business logic.
type ProductService struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a catalog entry.
type CreateProductInput struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required,min=2,max=100"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// UpdateProductInput holds the parameters for updating a catalog entry.
type UpdateProductInput struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required,min=2,max=100"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// CreateProduct adds a product to the catalog. The slug is derived from the
// title.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("product input is required")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Slug:        slug.Generate(input.Title),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Category:    strings.TrimSpace(input.Category),
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves a product by ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns a page of products, optionally filtered by category.
func (s *ProductService) ListProducts(ctx context.Context, category string, params pagination.Params) ([]domain.Product, int, error) {
	filter := repository.ProductFilter{
		Category: strings.TrimSpace(category),
		Page:     params.Page,
		PerPage:  params.PerPage,
	}
	return s.products.List(ctx, filter)
}

// SearchProductsInput carries catalog search criteria. All fields are
// optional; a zero input returns the whole catalog newest first.
type SearchProductsInput struct {
	Query    string
	Category string
	MinPrice int64
	MaxPrice int64
	Sort     string
}

// SearchProducts returns a page of products matching the optional text
// query, category, and price bounds, ordered per the sort parameter.
func (s *ProductService) SearchProducts(ctx context.Context, input SearchProductsInput, params pagination.Params) ([]domain.Product, int, error) {
	if input.MinPrice < 0 || input.MaxPrice < 0 {
		return nil, 0, apperrors.InvalidInput("price bounds must be non-negative")
	}
	if input.MaxPrice > 0 && input.MinPrice > input.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price cannot exceed max_price")
	}

	filter := repository.ProductSearchFilter{
		Query:    strings.TrimSpace(input.Query),
		Category: strings.TrimSpace(input.Category),
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		Sort:     input.Sort,
		Page:     params.Page,
		PerPage:  params.PerPage,
	}
	return s.products.Search(ctx, filter)
}

// ListCategories returns the distinct categories in the catalog.
func (s *ProductService) ListCategories(ctx context.Context) ([]string, error) {
	return s.products.Categories(ctx)
}

// UpdateProduct replaces the mutable fields of a product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("product input is required")
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	product.Title = strings.TrimSpace(input.Title)
	product.Slug = slug.Generate(input.Title)
	product.Description = input.Description
	product.Price = input.Price
	product.Stock = input.Stock
	product.Category = strings.TrimSpace(input.Category)
	product.ImageURL = input.ImageURL
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}
