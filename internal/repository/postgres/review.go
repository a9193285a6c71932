package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
)

const reviewColumns = `id, product_id, user_id, rating, title, body, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
//
// Every mutation updates the owning product's rating aggregate in the same
// transaction, and the aggregate arithmetic is a single UPDATE expression
// evaluated by the database. Concurrent reviewers of the same product
// serialize on the product row instead of losing updates to a
// read-modify-write race in application code.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review and folds its rating into the product aggregate:
// average' = (average × count + rating) / (count + 1), count' = count + 1.
// A second review from the same user for the same product violates the
// (user, product) unique index and maps to ErrAlreadyExists.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO product_reviews (id, product_id, user_id, rating, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, insertQuery,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Body,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product_id", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	aggQuery := `
		UPDATE products
		SET rating_average = ROUND((rating_average * rating_count + $2)::numeric / (rating_count + 1), 1),
		    rating_count = rating_count + 1,
		    updated_at = $3
		WHERE id = $1`

	ct, err := tx.Exec(ctx, aggQuery, review.ProductID, review.Rating, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", review.ProductID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM product_reviews WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Rating,
		&rv.Title,
		&rv.Body,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// GetByUserAndProduct retrieves the single review a user left on a product.
func (r *ReviewRepository) GetByUserAndProduct(ctx context.Context, userID, productID string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM product_reviews WHERE user_id = $1 AND product_id = $2`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, userID, productID).Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Rating,
		&rv.Title,
		&rv.Body,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// ListByProduct returns paginated reviews for a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.Title,
			&rv.Body,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// ListByUser returns all reviews written by a user, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM product_reviews
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.Title,
			&rv.Body,
			&rv.CreatedAt,
			&rv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// Update replaces a review's rating and text, adjusting the aggregate with
// the old rating removed and the new one folded in (count unchanged):
// average' = (average × count − old + new) / count.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review, oldRating int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE product_reviews
		SET rating = $1, title = $2, body = $3, updated_at = $4
		WHERE id = $5`

	ct, err := tx.Exec(ctx, updateQuery,
		review.Rating,
		review.Title,
		review.Body,
		time.Now().UTC(),
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	aggQuery := `
		UPDATE products
		SET rating_average = ROUND((rating_average * rating_count - $2 + $3)::numeric / rating_count, 1),
		    updated_at = $4
		WHERE id = $1 AND rating_count > 0`

	if _, err := tx.Exec(ctx, aggQuery, review.ProductID, oldRating, review.Rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("replace rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes a review and backs its rating out of the aggregate. The
// last review resets the aggregate to zero:
// count ≤ 1 → {0, 0}; else average' = (average × count − rating) / (count − 1).
func (r *ReviewRepository) Delete(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM product_reviews WHERE id = $1`, review.ID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	aggQuery := `
		UPDATE products
		SET rating_average = CASE
		        WHEN rating_count <= 1 THEN 0
		        ELSE ROUND((rating_average * rating_count - $2)::numeric / (rating_count - 1), 1)
		    END,
		    rating_count = GREATEST(rating_count - 1, 0),
		    updated_at = $3
		WHERE id = $1`

	if _, err := tx.Exec(ctx, aggQuery, review.ProductID, review.Rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("remove rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
