package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

func newProductTestService(t *testing.T) (*ProductService, *mockProductRepository) {
	t.Helper()
	products := new(mockProductRepository)
	return NewProductService(products, newTestLogger()), products
}

func TestSearchProducts_PassesFilterThrough(t *testing.T) {
	svc, products := newProductTestService(t)
	ctx := context.Background()

	products.On("Search", ctx, repository.ProductSearchFilter{
		Query:    "widget",
		Category: "tools",
		MinPrice: 500,
		MaxPrice: 1500,
		Sort:     repository.SortPriceAsc,
		Page:     2,
		PerPage:  10,
	}).Return([]domain.Product{{ID: "prod-1"}}, 1, nil)

	results, total, err := svc.SearchProducts(ctx, SearchProductsInput{
		Query:    " widget ",
		Category: " tools ",
		MinPrice: 500,
		MaxPrice: 1500,
		Sort:     repository.SortPriceAsc,
	}, paginationParams(2, 10))

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, total)
	products.AssertExpectations(t)
}

func TestSearchProducts_EmptyQueryAllowed(t *testing.T) {
	svc, products := newProductTestService(t)
	ctx := context.Background()

	products.On("Search", ctx, repository.ProductSearchFilter{
		Category: "tools",
		Page:     1,
		PerPage:  20,
	}).Return([]domain.Product{}, 0, nil)

	_, _, err := svc.SearchProducts(ctx, SearchProductsInput{Category: "tools"}, paginationParams(1, 20))

	require.NoError(t, err)
	products.AssertExpectations(t)
}

func TestSearchProducts_InvertedPriceBounds(t *testing.T) {
	svc, products := newProductTestService(t)
	ctx := context.Background()

	results, total, err := svc.SearchProducts(ctx, SearchProductsInput{
		MinPrice: 2000,
		MaxPrice: 1000,
	}, paginationParams(1, 20))

	assert.Nil(t, results)
	assert.Zero(t, total)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearchProducts_NegativePriceBound(t *testing.T) {
	svc, products := newProductTestService(t)
	ctx := context.Background()

	_, _, err := svc.SearchProducts(ctx, SearchProductsInput{MinPrice: -1}, paginationParams(1, 20))

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
