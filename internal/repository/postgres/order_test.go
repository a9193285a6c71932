package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/repository"
)

var orderColumns = []string{
	"id", "user_id", "status", "subtotal_amount", "discount_code",
	"discount_amount", "total_amount", "shipping_address", "created_at", "updated_at",
}

func sampleAddress() domain.Address {
	return domain.Address{
		FullName:    "Jane Doe",
		AddressLine: "1 Main St",
		City:        "Springfield",
		PostalCode:  "12345",
		Country:     "US",
	}
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:             "order-1",
		UserID:         "user-1",
		Status:         domain.OrderStatusPending,
		SubtotalAmount: 2500,
		DiscountCode:   "SAVE10",
		DiscountAmount: 250,
		TotalAmount:    2250,
		Items: []domain.OrderItem{
			{ID: "item-1", OrderID: "order-1", ProductID: "prod-1", Title: "Widget", Price: 900, Quantity: 2},
			{ID: "item-2", OrderID: "order-1", ProductID: "prod-2", Title: "Gadget", Price: 700, Quantity: 1},
		},
		ShippingAddress: sampleAddress(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOrderRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	o := sampleOrder()
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.UserID, o.Status, o.SubtotalAmount, o.DiscountCode,
			o.DiscountAmount, o.TotalAmount, shippingJSON, o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, item := range o.Items {
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(item.ID, item.OrderID, item.ProductID, item.Title, item.Price, item.Quantity).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err = repo.Create(context.Background(), &o)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemInsertFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	o := sampleOrder()
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.UserID, o.Status, o.SubtotalAmount, o.DiscountCode,
			o.DiscountAmount, o.TotalAmount, shippingJSON, o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.Items[0].ID, o.Items[0].OrderID, o.Items[0].ProductID, o.Items[0].Title, o.Items[0].Price, o.Items[0].Quantity).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.Create(context.Background(), &o)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	o := sampleOrder()
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)
	itemsJSON, err := json.Marshal(o.Items)
	require.NoError(t, err)

	columns := append(append([]string{}, orderColumns...), "items")
	mock.ExpectQuery("FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(
			pgxmock.NewRows(columns).AddRow(
				o.ID, o.UserID, o.Status, o.SubtotalAmount, o.DiscountCode,
				o.DiscountAmount, o.TotalAmount, shippingJSON, o.CreatedAt, o.UpdatedAt,
				itemsJSON,
			),
		)

	result, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, result.ID)
	assert.Equal(t, o.ShippingAddress, result.ShippingAddress)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Widget", result.Items[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders o").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_List_FilterByStatus(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	o := sampleOrder()
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	require.NoError(t, err)

	columns := append(append([]string{}, orderColumns...), "total_count")
	mock.ExpectQuery("FROM orders").
		WithArgs(o.UserID, domain.OrderStatusPending, 20, 0).
		WillReturnRows(
			pgxmock.NewRows(columns).AddRow(
				o.ID, o.UserID, o.Status, o.SubtotalAmount, o.DiscountCode,
				o.DiscountAmount, o.TotalAmount, shippingJSON, o.CreatedAt, o.UpdatedAt,
				5,
			),
		)
	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{o.ID}).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "order_id", "product_id", "title", "price", "quantity"}).
				AddRow("item-1", o.ID, "prod-1", "Widget", int64(900), 2),
		)

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{
		UserID:  o.UserID,
		Status:  domain.OrderStatusPending,
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 5, total)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Widget", orders[0].Items[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_EmptyResultSkipsItemLoad(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	columns := append(append([]string{}, orderColumns...), "total_count")
	mock.ExpectQuery("FROM orders").
		WithArgs("user-1", 20, 0).
		WillReturnRows(pgxmock.NewRows(columns))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{
		UserID:  "user-1",
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Delete_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	mock.ExpectExec("DELETE FROM orders").
		WithArgs("order-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "order-1")
	assert.NoError(t, err)
}

func TestOrderRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewOrderRepository(mock)

	mock.ExpectExec("DELETE FROM orders").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
