package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByPaymentSession(ctx context.Context, paymentSessionID string) (*models.Order, error)
	FindRecentConfirmable(ctx context.Context, caller models.Caller, since time.Time) (*models.Order, error)
	ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error)
	SetPaymentSession(ctx context.Context, id uuid.UUID, paymentSessionID string) error
	Complete(ctx context.Context, id uuid.UUID, completion models.Completion) (alreadyCompleted bool, err error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, user_id, session_id, payment_session_id, status, total_amount, currency,
		customer_email, customer_name, shipping_address, paid_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}

	var (
		userID  uuid.NullUUID
		address []byte
		paidAt  sql.NullTime
	)

	err := row.Scan(&order.ID, &userID, &order.SessionID, &order.PaymentSessionID, &order.Status, &order.TotalAmount, &order.Currency,
		&order.CustomerEmail, &order.CustomerName, &address, &paidAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		order.UserID = &userID.UUID
	}

	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	if len(address) > 0 {
		if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}

	return order, nil
}

// jsonbParam encodes an address for a JSONB column; nil becomes SQL NULL.
func jsonbParam(address *models.Address) (any, error) {
	if address == nil {
		return nil, nil
	}

	data, err := json.Marshal(address)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	return string(data), nil
}

// ownerFilter scopes a query to the signed-in user when there is one and to
// the browser session otherwise.
func ownerFilter(caller models.Caller) (string, any) {
	if caller.UserID != nil {
		return "user_id = $1", *caller.UserID
	}

	return "session_id = $1", caller.SessionID
}

func (r *orderRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// CreateOrder inserts the order and its items atomically.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	address, err := jsonbParam(order.ShippingAddress)
	if err != nil {
		return err
	}

	return r.withTx(dbCtx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orders (id, user_id, session_id, payment_session_id, status, total_amount, currency, shipping_address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, NOW(), NOW())
			RETURNING created_at, updated_at`

		err := tx.QueryRowContext(dbCtx, query, order.ID, order.UserID, order.SessionID, order.PaymentSessionID, order.Status,
			order.TotalAmount, order.Currency, address).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, line_total, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			RETURNING created_at`

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID

			err := tx.QueryRowContext(dbCtx, itemQuery, item.ID, item.OrderID, item.ProductID, item.ProductName, item.UnitPrice,
				item.Quantity, item.LineTotal).Scan(&item.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert an order item: %w", err)
			}
		}

		return nil
	})
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return r.getOne(dbCtx, query, id)
}

func (r *orderRepository) GetOrderByPaymentSession(ctx context.Context, paymentSessionID string) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_session_id = $1`

	return r.getOne(dbCtx, query, paymentSessionID)
}

// FindRecentConfirmable returns the caller's newest pending order created at
// or after since, falling back to the newest completed one.
func (r *orderRepository) FindRecentConfirmable(ctx context.Context, caller models.Caller, since time.Time) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	filter, owner := ownerFilter(caller)

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE ` + filter + ` AND status IN ('pending', 'completed') AND created_at >= $2
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1`

	return r.getOne(dbCtx, query, owner, since)
}

func (r *orderRepository) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", ErrNotFound)
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	if err := r.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// attachItems loads the items of every order in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))

	for _, order := range orders {
		ids = append(ids, order.ID.String())
		byID[order.ID] = order
		order.Items = []models.OrderItem{}
	}

	query := `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total, created_at
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY created_at, id`

	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem

		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity, &item.LineTotal, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}

		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	return rows.Err()
}

func (r *orderRepository) ListOrders(ctx context.Context, caller models.Caller, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	filter, owner := ownerFilter(caller)

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE `+filter, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE ` + filter + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	orders, err := r.queryOrders(dbCtx, query, owner, size, offset)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(dbCtx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListStalePending returns pending orders created before the cutoff, oldest
// first. Items are not loaded.
func (r *orderRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	return r.queryOrders(dbCtx, query, createdBefore, limit)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	orders := []*models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// SetPaymentSession records the gateway reference on a pending order.
func (r *orderRepository) SetPaymentSession(ctx context.Context, id uuid.UUID, paymentSessionID string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET payment_session_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.DB.ExecContext(dbCtx, query, id, paymentSessionID)
	if err != nil {
		return fmt.Errorf("failed to set payment session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("order %s is not pending: %w", id, ErrInvalidTransition)
	}

	return nil
}

// Complete moves a pending order to completed and takes the ordered units out
// of stock in the same transaction. The conditional status update is the
// serialization point between concurrent confirmations: only one caller sees
// a row affected, the others re-read the status and report a no-op. Any stock
// shortfall rolls the whole transaction back and the order stays pending.
func (r *orderRepository) Complete(ctx context.Context, id uuid.UUID, completion models.Completion) (bool, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	address, err := jsonbParam(completion.ShippingAddress)
	if err != nil {
		return false, err
	}

	alreadyCompleted := false

	err = r.withTx(dbCtx, func(tx *sql.Tx) error {
		query := `
			UPDATE orders
			SET status = 'completed', customer_email = $2, customer_name = $3,
				shipping_address = COALESCE(shipping_address, $4::jsonb), paid_at = $5, updated_at = NOW()
			WHERE id = $1 AND status = 'pending'`

		result, err := tx.ExecContext(dbCtx, query, id, completion.CustomerEmail, completion.CustomerName, address, completion.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to complete order: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading affected rows: %w", err)
		}

		if affected == 0 {
			status, err := currentStatus(dbCtx, tx, id)
			if err != nil {
				return err
			}

			if status == models.OrderStatusCompleted {
				alreadyCompleted = true
				return nil
			}

			return fmt.Errorf("order %s is %s: %w", id, status, ErrInvalidTransition)
		}

		// Rows are locked in product id order so concurrent completions cannot deadlock.
		rows, err := tx.QueryContext(dbCtx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id`, id)
		if err != nil {
			return fmt.Errorf("failed to get the order items: %w", err)
		}

		type line struct {
			productID models.ProductID
			quantity  int64
		}

		var lines []line

		for rows.Next() {
			var l line
			if err := rows.Scan(&l.productID, &l.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan order item: %w", err)
			}
			lines = append(lines, l)
		}

		rows.Close()

		if err := rows.Err(); err != nil {
			return err
		}

		products := NewProductRepo(tx)
		for _, l := range lines {
			if err := products.DecrementStock(dbCtx, l.productID, l.quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return alreadyCompleted, nil
}

// MarkFailed moves a pending order to failed. Orders in a terminal state are rejected.
func (r *orderRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.DB.ExecContext(dbCtx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if affected == 1 {
		return nil
	}

	status, err := currentStatus(dbCtx, r.DB, id)
	if err != nil {
		return err
	}

	return fmt.Errorf("order %s is %s: %w", id, status, ErrInvalidTransition)
}

func currentStatus(ctx context.Context, db DBTX, id uuid.UUID) (models.OrderStatus, error) {
	var status models.OrderStatus

	if err := db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("order %s: %w", id, ErrNotFound)
		}

		return "", fmt.Errorf("failed to read order status: %w", err)
	}

	return status, nil
}
