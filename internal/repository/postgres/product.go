package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

const productColumns = `id, title, slug, description, price, stock, category, image_url, rating_average, rating_count, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Category,
		&p.ImageURL,
		&p.RatingAverage,
		&p.RatingCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product. A duplicate slug maps to ErrAlreadyExists.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, title, slug, description, price, stock, category, image_url, rating_average, rating_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Category,
		p.ImageURL,
		p.RatingAverage,
		p.RatingCount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return p, nil
}

// List returns products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	var (
		rows pgx.Rows
		err  error
	)

	if filter.Category != "" {
		query := `
			SELECT ` + productColumns + `, count(*) OVER() AS total_count
			FROM products
			WHERE category = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		rows, err = r.pool.Query(ctx, query, filter.Category, limit, offset)
	} else {
		query := `
			SELECT ` + productColumns + `, count(*) OVER() AS total_count
			FROM products
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`
		rows, err = r.pool.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Search returns products matching the filter's text query, category, and
// price bounds, ordered per the filter's sort. Every criterion is optional.
func (r *ProductRepository) Search(ctx context.Context, filter repository.ProductSearchFilter) ([]domain.Product, int, error) {
	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if filter.Query != "" {
		args = append(args, filter.Query)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}

	sql := `SELECT ` + productColumns + `, count(*) OVER() AS total_count FROM products`
	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += " ORDER BY " + searchOrderBy(filter.Sort)
	args = append(args, limit, offset)
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func searchOrderBy(sort string) string {
	switch sort {
	case repository.SortPriceAsc:
		return "price ASC"
	case repository.SortPriceDesc:
		return "price DESC"
	case repository.SortOldest:
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}

// Categories returns the distinct non-empty categories in the catalog.
func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}

// Update replaces the mutable catalog fields of a product. Rating fields
// are owned by the review repository and left untouched.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET title = $1, slug = $2, description = $3, price = $4, stock = $5, category = $6, image_url = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		p.Title,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Category,
		p.ImageURL,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// DecrementStock atomically subtracts quantity, gated on sufficient stock.
// The WHERE clause is the actual oversell guard: concurrent checkouts can
// both pass the service-level pre-check, but only updates that keep stock
// non-negative take effect here.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2`

	ct, err := r.pool.Exec(ctx, query, id, quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check product existence: %w", err)
		}
		if !exists {
			return apperrors.NotFound("product", id)
		}
		return apperrors.ErrConflict
	}

	return nil
}

// IncrementStock adds quantity back to a product's stock (compensation).
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = $3
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id, quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, int, error) {
	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.Category,
			&p.ImageURL,
			&p.RatingAverage,
			&p.RatingCount,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}
