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

const discountColumns = `id, code, discount_type, value, min_purchase, max_uses, used_count, valid_from, valid_until, active, created_at, updated_at`

// DiscountRepository implements repository.DiscountRepository using PostgreSQL.
type DiscountRepository struct {
	pool database.DBTX
}

// NewDiscountRepository creates a new PostgreSQL-backed discount repository.
func NewDiscountRepository(pool database.DBTX) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func scanDiscount(row pgx.Row) (*domain.Discount, error) {
	var d domain.Discount
	err := row.Scan(
		&d.ID,
		&d.Code,
		&d.Type,
		&d.Value,
		&d.MinPurchase,
		&d.MaxUses,
		&d.UsedCount,
		&d.ValidFrom,
		&d.ValidUntil,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new discount code. Codes are unique; duplicates map to
// ErrAlreadyExists.
func (r *DiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	query := `
		INSERT INTO discounts (id, code, discount_type, value, min_purchase, max_uses, used_count, valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.Code,
		d.Type,
		d.Value,
		d.MinPurchase,
		d.MaxUses,
		d.UsedCount,
		d.ValidFrom,
		d.ValidUntil,
		d.Active,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("discount", "code", d.Code)
		}
		return fmt.Errorf("insert discount: %w", err)
	}

	return nil
}

// GetByID retrieves a discount by ID.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	d, err := scanDiscount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("discount", id)
		}
		return nil, fmt.Errorf("scan discount: %w", err)
	}

	return d, nil
}

// GetByCode retrieves a discount by its normalized code.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`

	d, err := scanDiscount(r.pool.QueryRow(ctx, query, domain.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan discount: %w", err)
	}

	return d, nil
}

// List returns discounts with the total count, newest first.
func (r *DiscountRepository) List(ctx context.Context, page, perPage int) ([]domain.Discount, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT ` + discountColumns + `, count(*) OVER() AS total_count
		FROM discounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	var totalCount int
	discounts := make([]domain.Discount, 0)

	for rows.Next() {
		var d domain.Discount
		if err := rows.Scan(
			&d.ID,
			&d.Code,
			&d.Type,
			&d.Value,
			&d.MinPurchase,
			&d.MaxUses,
			&d.UsedCount,
			&d.ValidFrom,
			&d.ValidUntil,
			&d.Active,
			&d.CreatedAt,
			&d.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan discount row: %w", err)
		}
		discounts = append(discounts, d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate discount rows: %w", err)
	}

	return discounts, totalCount, nil
}

// Update replaces the mutable fields of a discount. UsedCount is owned by
// Redeem/Unredeem and left untouched.
func (r *DiscountRepository) Update(ctx context.Context, d *domain.Discount) error {
	query := `
		UPDATE discounts
		SET code = $1, discount_type = $2, value = $3, min_purchase = $4, max_uses = $5, valid_from = $6, valid_until = $7, active = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.pool.Exec(ctx, query,
		d.Code,
		d.Type,
		d.Value,
		d.MinPurchase,
		d.MaxUses,
		d.ValidFrom,
		d.ValidUntil,
		d.Active,
		time.Now().UTC(),
		d.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("discount", "code", d.Code)
		}
		return fmt.Errorf("update discount: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("discount", d.ID)
	}

	return nil
}

// Delete removes a discount code.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("discount", id)
	}

	return nil
}

// Redeem atomically increments used_count while still under max_uses.
// The WHERE clause makes the usage cap exact under concurrent checkouts:
// two racers can both read used_count < max_uses, but only one conditional
// increment lands once the cap is reached.
func (r *DiscountRepository) Redeem(ctx context.Context, id string) error {
	query := `
		UPDATE discounts
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`

	ct, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("redeem discount: %w", err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM discounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check discount existence: %w", err)
		}
		if !exists {
			return apperrors.NotFound("discount", id)
		}
		return apperrors.ErrConflict
	}

	return nil
}

// Unredeem decrements used_count, never below zero. Used by the checkout
// compensation path when a redeemed code's order fails to complete.
func (r *DiscountRepository) Unredeem(ctx context.Context, id string) error {
	query := `
		UPDATE discounts
		SET used_count = GREATEST(used_count - 1, 0), updated_at = $2
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("unredeem discount: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("discount", id)
	}

	return nil
}
