package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
)

var discountTestColumns = []string{
	"id", "code", "discount_type", "value", "min_purchase", "max_uses",
	"used_count", "valid_from", "valid_until", "active", "created_at", "updated_at",
}

func sampleDiscount() domain.Discount {
	until := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	return domain.Discount{
		ID:          "disc-1",
		Code:        "SAVE10",
		Type:        domain.DiscountTypePercentage,
		Value:       10,
		MinPurchase: 1000,
		MaxUses:     intPtr(100),
		UsedCount:   7,
		ValidFrom:   nil,
		ValidUntil:  &until,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func discountRow(d domain.Discount) []any {
	return []any{
		d.ID, d.Code, d.Type, d.Value, d.MinPurchase, d.MaxUses,
		d.UsedCount, d.ValidFrom, d.ValidUntil, d.Active, d.CreatedAt, d.UpdatedAt,
	}
}

func TestDiscountRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	d := sampleDiscount()

	mock.ExpectExec("INSERT INTO discounts").
		WithArgs(
			d.ID, d.Code, d.Type, d.Value, d.MinPurchase, d.MaxUses,
			d.UsedCount, d.ValidFrom, d.ValidUntil, d.Active, d.CreatedAt, d.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Create_DuplicateCode(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	d := sampleDiscount()

	mock.ExpectExec("INSERT INTO discounts").
		WithArgs(
			d.ID, d.Code, d.Type, d.Value, d.MinPurchase, d.MaxUses,
			d.UsedCount, d.ValidFrom, d.ValidUntil, d.Active, d.CreatedAt, d.UpdatedAt,
		).
		WillReturnError(errUniqueViolation)

	err := repo.Create(context.Background(), &d)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestDiscountRepository_GetByCode_NormalizesInput(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	d := sampleDiscount()
	mock.ExpectQuery("SELECT .+ FROM discounts WHERE code").
		WithArgs("SAVE10").
		WillReturnRows(pgxmock.NewRows(discountTestColumns).AddRow(discountRow(d)...))

	result, err := repo.GetByCode(context.Background(), "  save10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", result.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_GetByCode_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM discounts WHERE code").
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByCode(context.Background(), "NOPE")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDiscountRepository_Redeem_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	mock.ExpectExec("SET used_count = used_count \\+ 1").
		WithArgs("disc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Redeem(context.Background(), "disc-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Redeem_UsageCapReached(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	// Conditional increment lands on no rows once used_count == max_uses.
	mock.ExpectExec("SET used_count = used_count \\+ 1").
		WithArgs("disc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("disc-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Redeem(context.Background(), "disc-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_Redeem_UnknownDiscount(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	mock.ExpectExec("SET used_count = used_count \\+ 1").
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Redeem(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDiscountRepository_Unredeem_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	mock.ExpectExec("SET used_count = GREATEST").
		WithArgs("disc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Unredeem(context.Background(), "disc-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscountRepository_List(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	d := sampleDiscount()
	columns := append(append([]string{}, discountTestColumns...), "total_count")
	mock.ExpectQuery("FROM discounts").
		WithArgs(20, 0).
		WillReturnRows(
			pgxmock.NewRows(columns).AddRow(append(discountRow(d), 3)...),
		)

	discounts, total, err := repo.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, discounts, 1)
	assert.Equal(t, 3, total)
}

func TestDiscountRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewDiscountRepository(mock)

	mock.ExpectExec("DELETE FROM discounts").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
