package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campus-eats/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrder inserts the order and its items atomically. It returns
	// ErrIdentifierCollision when the id is already taken.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	FetchOrders(ctx context.Context, status *Status, limit, offset int) ([]*Order, error)
	CountOrders(ctx context.Context, status *Status) (int64, error)
	FetchOrderItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error)
	// UpdateStatus reports false when the order is no longer in change.Expected.
	UpdateStatus(ctx context.Context, orderID string, change StatusChange) (bool, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	o.id, o.user_id, o.total_amount, o.status, o.payment_method, o.payment_status,
	o.delivery_street, o.delivery_city, o.delivery_state, o.delivery_zip_code,
	o.special_instructions, o.estimated_delivery_time, o.actual_delivery_time,
	o.created_at, o.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o         Order
		delivered sql.NullTime
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.DeliveryAddress.Street,
		&o.DeliveryAddress.City,
		&o.DeliveryAddress.State,
		&o.DeliveryAddress.ZipCode,
		&o.SpecialInstructions,
		&o.EstimatedDeliveryTime,
		&delivered,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if delivered.Valid {
		t := delivered.Time
		o.ActualDeliveryTime = &t
	}
	return &o, nil
}

func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.String("order_id", o.ID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return storageError(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, total_amount, status, payment_method, payment_status,
			delivery_street, delivery_city, delivery_state, delivery_zip_code,
			special_instructions, estimated_delivery_time, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING
	`,
		o.ID,
		o.UserID,
		o.TotalAmount,
		o.Status,
		o.PaymentMethod,
		o.PaymentStatus,
		o.DeliveryAddress.Street,
		o.DeliveryAddress.City,
		o.DeliveryAddress.State,
		o.DeliveryAddress.ZipCode,
		o.SpecialInstructions,
		o.EstimatedDeliveryTime,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return storageError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageError(err)
	}
	if affected == 0 {
		log.Warn("order id already taken")
		return ErrIdentifierCollision
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, menu_item_id, name, image, quantity, unit_price
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			o.ID,
			i,
			item.MenuItemID,
			item.Name,
			item.Image,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			log.Error("failed to insert order item", zap.Int("position", i), zap.Error(err))
			return storageError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return storageError(err)
	}

	log.Debug("order persisted", zap.Int("items", len(o.Items)))
	return nil
}

func (r *repository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		WHERE o.id = $1
	`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}

	items, err := r.FetchOrderItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`, userID)
	if err != nil {
		return nil, storageError(err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FetchOrders(ctx context.Context, status *Status, limit, offset int) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FetchOrders"),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	query := `SELECT` + orderColumns + `
		FROM orders o
		WHERE 1=1`

	args := []any{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, string(*status))
		argIndex++
	}

	query += " ORDER BY o.created_at DESC, o.id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	log.Debug("executing fetch orders query", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, storageError(err)
	}

	return collectOrders(rows)
}

func (r *repository) CountOrders(ctx context.Context, status *Status) (int64, error) {
	query := `SELECT COUNT(*) FROM orders o WHERE 1=1`
	args := []any{}

	if status != nil {
		query += " AND o.status = $1"
		args = append(args, string(*status))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, storageError(err)
	}
	return total, nil
}

// FetchOrderItems loads the items of several orders in one round trip, keyed
// by order id and kept in line order.
func (r *repository) FetchOrderItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	result := make(map[string][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, menu_item_id, name, image, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    OrderItem
		)
		if err := rows.Scan(
			&orderID,
			&item.MenuItemID,
			&item.Name,
			&item.Image,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return nil, storageError(err)
		}
		result[orderID] = append(result[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return result, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID string, change StatusChange) (bool, error) {
	var payment any
	if change.PaymentStatus != nil {
		payment = string(*change.PaymentStatus)
	}
	var delivered any
	if change.ActualDeliveryTime != nil {
		delivered = *change.ActualDeliveryTime
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			payment_status = COALESCE($2, payment_status),
			actual_delivery_time = COALESCE($3, actual_delivery_time),
			updated_at = $4
		WHERE id = $5 AND status = $6
	`,
		string(change.Target),
		payment,
		delivered,
		change.UpdatedAt,
		orderID,
		string(change.Expected),
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.String("layer", "repository"),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return false, storageError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError(err)
	}
	return affected == 1, nil
}

// Stats aggregates over the persisted orders in a single statement so the
// counts are always consistent with each other.
func (r *repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
	`, since).Scan(
		&s.TotalOrders,
		&s.PendingOrders,
		&s.DeliveredOrders,
		&s.TodayOrders,
		&s.TotalRevenue,
	)
	if err != nil {
		return nil, storageError(err)
	}
	return &s, nil
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storageError(err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return orders, nil
}

func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	items, err := r.FetchOrderItems(ctx, ids)
	if err != nil {
		return err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return nil
}
