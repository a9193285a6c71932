package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func intPtr(n int) *int { return &n }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var errUniqueViolation = errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")

// ─── Product column definitions ─────────────────────────────────────────────

var productTestColumns = []string{
	"id", "title", "slug", "description", "price", "stock", "category",
	"image_url", "rating_average", "rating_count", "created_at", "updated_at",
}

var productTestColumnsWithCount = append(append([]string{}, productTestColumns...), "total_count")

func sampleProduct() domain.Product {
	return domain.Product{
		ID:            "prod-1",
		Title:         "Widget",
		Slug:          "widget",
		Description:   "A fine widget",
		Price:         900,
		Stock:         10,
		Category:      "tools",
		ImageURL:      "https://cdn.example.com/widget.jpg",
		RatingAverage: 4.5,
		RatingCount:   12,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Category,
		p.ImageURL, p.RatingAverage, p.RatingCount, p.CreatedAt, p.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ProductRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Category,
			p.ImageURL, p.RatingAverage, p.RatingCount, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_DuplicateSlug(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Category,
			p.ImageURL, p.RatingAverage, p.RatingCount, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnError(errUniqueViolation)

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productTestColumns).AddRow(productRow(p)...))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Title, result.Title)
	assert.Equal(t, p.Stock, result.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_List_WithCategory(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("WHERE category = \\$1").
		WithArgs("tools", 20, 0).
		WillReturnRows(
			pgxmock.NewRows(productTestColumnsWithCount).
				AddRow(append(productRow(p), 42)...),
		)

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Category: "tools",
		Page:     1,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_NoCategory(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("FROM products").
		WithArgs(10, 10).
		WillReturnRows(
			pgxmock.NewRows(productTestColumnsWithCount).
				AddRow(append(productRow(p), 11)...),
		)

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Page:    2,
		PerPage: 10,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Search_TextQuery(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("title ILIKE .+ ORDER BY created_at DESC").
		WithArgs("widg", 20, 0).
		WillReturnRows(
			pgxmock.NewRows(productTestColumnsWithCount).
				AddRow(append(productRow(p), 1)...),
		)

	products, total, err := repo.Search(context.Background(), repository.ProductSearchFilter{
		Query:   "widg",
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Search_FiltersAndSort(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("title ILIKE .+ category = \\$2 AND price >= \\$3 AND price <= \\$4 ORDER BY price ASC").
		WithArgs("widg", "tools", int64(500), int64(1500), 20, 0).
		WillReturnRows(
			pgxmock.NewRows(productTestColumnsWithCount).
				AddRow(append(productRow(p), 1)...),
		)

	products, total, err := repo.Search(context.Background(), repository.ProductSearchFilter{
		Query:    "widg",
		Category: "tools",
		MinPrice: 500,
		MaxPrice: 1500,
		Sort:     repository.SortPriceAsc,
		Page:     1,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Search_NoCriteria(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("FROM products ORDER BY created_at DESC LIMIT \\$1 OFFSET \\$2").
		WithArgs(20, 0).
		WillReturnRows(
			pgxmock.NewRows(productTestColumnsWithCount).
				AddRow(append(productRow(p), 42)...),
		)

	products, total, err := repo.Search(context.Background(), repository.ProductSearchFilter{
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchOrderBy(t *testing.T) {
	assert.Equal(t, "price ASC", searchOrderBy(repository.SortPriceAsc))
	assert.Equal(t, "price DESC", searchOrderBy(repository.SortPriceDesc))
	assert.Equal(t, "created_at ASC", searchOrderBy(repository.SortOldest))
	assert.Equal(t, "created_at DESC", searchOrderBy(repository.SortNewest))
	assert.Equal(t, "created_at DESC", searchOrderBy(""))
	assert.Equal(t, "created_at DESC", searchOrderBy("rating"))
}

func TestProductRepository_Categories(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT DISTINCT category FROM products").
		WillReturnRows(
			pgxmock.NewRows([]string{"category"}).
				AddRow("gadgets").
				AddRow("tools"),
		)

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gadgets", "tools"}, categories)
}

func TestProductRepository_Update_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Category,
			p.ImageURL, pgxmock.AnyArg(), p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), &p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Title, p.Slug, p.Description, p.Price, p.Stock, p.Category,
			p.ImageURL, pgxmock.AnyArg(), p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_DecrementStock_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("SET stock = stock - \\$2").
		WithArgs("prod-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.DecrementStock(context.Background(), "prod-1", 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_DecrementStock_InsufficientStock(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	// The conditional UPDATE touches no rows when stock < quantity; the
	// follow-up existence probe decides conflict vs not-found.
	mock.ExpectExec("SET stock = stock - \\$2").
		WithArgs("prod-1", 99, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.DecrementStock(context.Background(), "prod-1", 99)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_DecrementStock_UnknownProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("SET stock = stock - \\$2").
		WithArgs("missing", 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.DecrementStock(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_IncrementStock_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("SET stock = stock \\+ \\$2").
		WithArgs("prod-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.IncrementStock(context.Background(), "prod-1", 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
