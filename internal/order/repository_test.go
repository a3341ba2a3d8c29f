package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{
	"id", "user_id", "total_amount", "status", "payment_method", "payment_status",
	"delivery_street", "delivery_city", "delivery_state", "delivery_zip_code",
	"special_instructions", "estimated_delivery_time", "actual_delivery_time",
	"created_at", "updated_at",
}

var itemRowColumns = []string{"order_id", "menu_item_id", "name", "image", "quantity", "unit_price"}

func addOrderRow(rows *sqlmock.Rows, id, userID, status string, delivered any) *sqlmock.Rows {
	return rows.AddRow(
		id, userID, "25.98", status, "cash", "pending",
		"12 College Rd", "Springfield", "IL", "62701",
		"", testNow.Add(35*time.Minute), delivered,
		testNow, testNow,
	)
}

func newSQLRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewRepository(db), mock, func() { db.Close() }
}

func sampleOrder(id string) *Order {
	return &Order{
		ID:     id,
		UserID: "user-alice",
		Items: []OrderItem{
			{MenuItemID: pizzaID, Name: "Margherita", Image: "pizza.jpg", Quantity: 2, UnitPrice: decimal.RequireFromString("12.99")},
			{MenuItemID: colaID, Name: "Cola", Image: "default-food.jpg", Quantity: 1, UnitPrice: decimal.RequireFromString("1.50")},
		},
		TotalAmount:           decimal.RequireFromString("27.48"),
		Status:                StatusPending,
		PaymentMethod:         PaymentCard,
		PaymentStatus:         PaymentPending,
		DeliveryAddress:       DeliveryAddress{Street: "12 College Rd", City: "Springfield", State: "IL", ZipCode: "62701"},
		EstimatedDeliveryTime: testNow.Add(35 * time.Minute),
		CreatedAt:             testNow,
		UpdatedAt:             testNow,
	}
}

func TestRepository_CreateOrder(t *testing.T) {
	ctx := context.Background()
	id := newOrderID()

	t.Run("Success", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders .* ON CONFLICT \(id\) DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(id, 0, pizzaID, "Margherita", "pizza.jpg", 2, decimal.RequireFromString("12.99")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(id, 1, colaID, "Cola", "default-food.jpg", 1, decimal.RequireFromString("1.50")).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := repo.CreateOrder(ctx, sampleOrder(id))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Identifier collision", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, sampleOrder(id))
		assert.ErrorIs(t, err, ErrIdentifierCollision)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Item insert failure rolls back", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		err := repo.CreateOrder(ctx, sampleOrder(id))
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin failure", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := repo.CreateOrder(ctx, sampleOrder(id))
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRepository_GetOrder(t *testing.T) {
	ctx := context.Background()
	id := newOrderID()

	t.Run("Success with items", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`(?s)SELECT .* FROM orders o WHERE o.id = \$1`).
			WithArgs(id).
			WillReturnRows(addOrderRow(sqlmock.NewRows(orderRowColumns), id, "user-alice", "delivered", testNow.Add(time.Hour)))
		mock.ExpectQuery(`SELECT order_id, menu_item_id, name, image, quantity, unit_price FROM order_items WHERE order_id = ANY\(\$1\)`).
			WithArgs(pq.Array([]string{id})).
			WillReturnRows(sqlmock.NewRows(itemRowColumns).
				AddRow(id, pizzaID, "Margherita", "pizza.jpg", 2, "12.99"))

		o, err := repo.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, o.ID)
		assert.Equal(t, StatusDelivered, o.Status)
		assert.Equal(t, PaymentCash, o.PaymentMethod)
		assert.Equal(t, "Springfield", o.DeliveryAddress.City)
		assert.Equal(t, "25.98", o.TotalAmount.StringFixed(2))
		require.NotNil(t, o.ActualDeliveryTime)
		assert.Equal(t, testNow.Add(time.Hour), *o.ActualDeliveryTime)
		require.Len(t, o.Items, 1)
		assert.Equal(t, 2, o.Items[0].Quantity)
		assert.Equal(t, "12.99", o.Items[0].UnitPrice.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not delivered yet", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`FROM orders o`).
			WillReturnRows(addOrderRow(sqlmock.NewRows(orderRowColumns), id, "user-alice", "pending", nil))
		mock.ExpectQuery(`FROM order_items`).
			WillReturnRows(sqlmock.NewRows(itemRowColumns))

		o, err := repo.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, o.ActualDeliveryTime)
		assert.Empty(t, o.Items)
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`FROM orders o`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetOrder(ctx, id)
		assert.Equal(t, ErrOrderNotFound, err)
	})

	t.Run("Storage failure is wrapped", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`FROM orders o`).WillReturnError(errors.New("pq: password authentication failed"))

		_, err := repo.GetOrder(ctx, id)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock, done := newSQLRepo(t)
	defer done()

	a, b := newOrderID(), newOrderID()
	rows := sqlmock.NewRows(orderRowColumns)
	addOrderRow(rows, b, "user-alice", "pending", nil)
	addOrderRow(rows, a, "user-alice", "cancelled", nil)

	mock.ExpectQuery(`(?s)FROM orders o WHERE o.user_id = \$1 ORDER BY o.created_at DESC`).
		WithArgs("user-alice").
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM order_items`).
		WithArgs(pq.Array([]string{b, a})).
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow(a, colaID, "Cola", "default-food.jpg", 1, "1.50").
			AddRow(b, pizzaID, "Margherita", "pizza.jpg", 2, "12.99").
			AddRow(b, colaID, "Cola", "default-food.jpg", 3, "1.50"))

	orders, err := repo.ListByUser(context.Background(), "user-alice")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, b, orders[0].ID)
	assert.Len(t, orders[0].Items, 2)
	assert.Len(t, orders[1].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchAndCount(t *testing.T) {
	ctx := context.Background()

	t.Run("Status filter with pagination", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		id := newOrderID()
		mock.ExpectQuery(`(?s)FROM orders o WHERE 1=1 AND o.status = \$1 ORDER BY o.created_at DESC, o.id DESC LIMIT \$2 OFFSET \$3`).
			WithArgs("ready", 10, 20).
			WillReturnRows(addOrderRow(sqlmock.NewRows(orderRowColumns), id, "user-bob", "ready", nil))

		status := StatusReady
		orders, err := repo.FetchOrders(ctx, &status, 10, 20)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, StatusReady, orders[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No filter", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		orders, err := repo.FetchOrders(ctx, nil, 10, 0)
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	t.Run("Count", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders o WHERE 1=1$`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders o WHERE 1=1 AND o.status = \$1`).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		total, err := repo.CountOrders(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(42), total)

		status := StatusPending
		pending, err := repo.CountOrders(ctx, &status)
		require.NoError(t, err)
		assert.Equal(t, int64(7), pending)
	})

	t.Run("No ids means no query", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		items, err := repo.FetchOrderItems(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	id := newOrderID()
	deliveredAt := testNow.Add(40 * time.Minute)
	completed := PaymentCompleted

	deliver := StatusChange{
		Expected:           StatusReady,
		Target:             StatusDelivered,
		PaymentStatus:      &completed,
		ActualDeliveryTime: &deliveredAt,
		UpdatedAt:          deliveredAt,
	}

	t.Run("Applied", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectExec(`UPDATE orders SET status = \$1, payment_status = COALESCE\(\$2, payment_status\), actual_delivery_time = COALESCE\(\$3, actual_delivery_time\), updated_at = \$4 WHERE id = \$5 AND status = \$6`).
			WithArgs("delivered", "completed", deliveredAt, deliveredAt, id, "ready").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatus(ctx, id, deliver)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Untouched fields are sent as NULL", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectExec(`UPDATE orders`).
			WithArgs("preparing", nil, nil, testNow, id, "confirmed").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatus(ctx, id, StatusChange{Expected: StatusConfirmed, Target: StatusPreparing, UpdatedAt: testNow})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Status moved underneath", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateStatus(ctx, id, deliver)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Error", func(t *testing.T) {
		repo, mock, done := newSQLRepo(t)
		defer done()

		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("deadlock detected"))

		_, err := repo.UpdateStatus(ctx, id, deliver)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRepository_Stats(t *testing.T) {
	repo, mock, done := newSQLRepo(t)
	defer done()

	since := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE status = 'pending'\).*COALESCE\(SUM\(total_amount\) FILTER \(WHERE status = 'delivered'\), 0\) FROM orders`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "delivered", "today", "revenue"}).
			AddRow(10, 3, 4, 2, "103.92"))

	stats, err := repo.Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalOrders)
	assert.Equal(t, int64(3), stats.PendingOrders)
	assert.Equal(t, int64(4), stats.DeliveredOrders)
	assert.Equal(t, int64(2), stats.TodayOrders)
	assert.Equal(t, "103.92", stats.TotalRevenue.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
