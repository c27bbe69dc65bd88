package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"storefront/models"
)

const orderColumns = `order_id, owner, shipping_details, payment_method, delivery_fee, total_amount, status, tracking_number, order_date, updated_at`

// OrderRepository handles database operations for orders and their items
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderRepository{db: db, logger: logger, now: time.Now}
}

// Ensure OrderRepository implements OrderRepositoryInterface
var _ OrderRepositoryInterface = (*OrderRepository)(nil)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create stores the order and its items in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.logger.Info("📦 Creating order", zap.String("order_id", order.OrderID), zap.Int("items", len(order.Items)))

	shipping, err := json.Marshal(order.ShippingDetails)
	if err != nil {
		return fmt.Errorf("failed to encode shipping details: %w", err)
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.OrderDate
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, owner, shipping_details, payment_method, delivery_fee, total_amount, status, tracking_number, order_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		order.OrderID,
		order.Owner,
		shipping,
		string(order.PaymentMethod),
		order.DeliveryFee,
		order.TotalAmount,
		string(order.Status),
		order.TrackingNumber,
		order.OrderDate,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("❌ Error inserting order", zap.Error(err))
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, it := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, product_image, unit_price, quantity, size, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, order.OrderID, i, it.ProductID, it.ProductName, it.ProductImage, it.UnitPrice, it.Quantity, it.Size, it.LineTotal)
		if err != nil {
			r.logger.Error("❌ Error inserting order item", zap.Int("position", i), zap.Error(err))
			return fmt.Errorf("failed to insert order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	r.logger.Info("✓ Order created", zap.String("order_id", order.OrderID), zap.String("tracking", order.TrackingNumber))
	return nil
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	var shipping []byte
	var method, status string
	if err := row.Scan(
		&o.OrderID,
		&o.Owner,
		&shipping,
		&method,
		&o.DeliveryFee,
		&o.TotalAmount,
		&status,
		&o.TrackingNumber,
		&o.OrderDate,
		&o.UpdatedAt,
	); err != nil {
		return o, err
	}
	o.PaymentMethod = models.PaymentMethod(method)
	o.Status = models.OrderStatus(status)
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingDetails); err != nil {
			return o, fmt.Errorf("decode shipping details of %s: %w", o.OrderID, err)
		}
	}
	return o, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *OrderRepository) loadItems(ctx context.Context, q querier, orderID string) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, product_name, product_image, unit_price, quantity, size, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.ProductImage, &it.UnitPrice, &it.Quantity, &it.Size, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}

// GetByID returns an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	if o.Items, err = r.loadItems(ctx, r.db, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns the orders of owner, or every order when owner is empty, newest first
func (r *OrderRepository) List(ctx context.Context, owner string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []interface{}
	if owner != "" {
		query += ` WHERE owner = $1`
		args = append(args, owner)
	}
	query += ` ORDER BY order_date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("❌ Error querying orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, r.db, orders[i].OrderID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus moves an order to status if the lifecycle allows it
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read order status: %w", err)
	}

	from := models.OrderStatus(current)
	if !from.CanTransitionTo(status) {
		r.logger.Warn("⚠️ Rejected status transition",
			zap.String("order_id", orderID), zap.String("from", current), zap.String("to", string(status)))
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}

	if from != status {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = $3 WHERE order_id = $1`,
			orderID, string(status), r.now().UTC(),
		); err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	r.logger.Info("✓ Order status updated", zap.String("order_id", orderID), zap.String("status", string(status)))
	return r.GetByID(ctx, orderID)
}

// Delete removes an order; its items go with it
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return requireAffected(res)
}
