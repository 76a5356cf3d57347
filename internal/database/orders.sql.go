package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.user_id, o.stall_id, o.subtotal, o.discount_amount, o.total_amount, o.coupon_code,
    o.status, o.payment_status, o.payment_method, o.transaction_id, o.order_type, o.pickup_time,
    o.token_number, o.token_status, o.stall_name, o.event_name, o.created_at, o.updated_at`

func orderScanTargets(i *Order) []any {
	return []any{
		&i.ID,
		&i.UserID,
		&i.StallID,
		&i.Subtotal,
		&i.DiscountAmount,
		&i.TotalAmount,
		&i.CouponCode,
		&i.Status,
		&i.PaymentStatus,
		&i.PaymentMethod,
		&i.TransactionID,
		&i.OrderType,
		&i.PickupTime,
		&i.TokenNumber,
		&i.TokenStatus,
		&i.StallName,
		&i.EventName,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func (q *Queries) queryOrders(ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		var i Order
		if err := rows.Scan(orderScanTargets(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders AS o (
    user_id, stall_id, subtotal, discount_amount, total_amount, coupon_code,
    payment_method, transaction_id, order_type, pickup_time
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID         uuid.UUID          `json:"user_id"`
	StallID        uuid.UUID          `json:"stall_id"`
	Subtotal       pgtype.Numeric     `json:"subtotal"`
	DiscountAmount pgtype.Numeric     `json:"discount_amount"`
	TotalAmount    pgtype.Numeric     `json:"total_amount"`
	CouponCode     pgtype.Text        `json:"coupon_code"`
	PaymentMethod  string             `json:"payment_method"`
	TransactionID  pgtype.Text        `json:"transaction_id"`
	OrderType      string             `json:"order_type"`
	PickupTime     pgtype.Timestamptz `json:"pickup_time"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.StallID,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.TotalAmount,
		arg.CouponCode,
		arg.PaymentMethod,
		arg.TransactionID,
		arg.OrderType,
		arg.PickupTime,
	)
	var i Order
	err := row.Scan(orderScanTargets(&i)...)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, food_item_id, name, price, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, food_item_id, name, price, quantity`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	FoodItemID uuid.UUID      `json:"food_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.FoodItemID,
		arg.Name,
		arg.Price,
		arg.Quantity,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.FoodItemID, &i.Name, &i.Price, &i.Quantity)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var i Order
	err := q.db.QueryRow(ctx, getOrder, id).Scan(orderScanTargets(&i)...)
	return i, err
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	var i Order
	err := q.db.QueryRow(ctx, getOrderForUpdate, id).Scan(orderScanTargets(&i)...)
	return i, err
}

const updateOrderState = `-- name: UpdateOrderState :one
UPDATE orders AS o
SET status = $2, payment_status = $3, token_number = $4, token_status = $5,
    stall_name = $6, event_name = $7, updated_at = now()
WHERE o.id = $1
RETURNING ` + orderColumns

type UpdateOrderStateParams struct {
	ID            uuid.UUID   `json:"id"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	TokenNumber   pgtype.Int4 `json:"token_number"`
	TokenStatus   pgtype.Text `json:"token_status"`
	StallName     pgtype.Text `json:"stall_name"`
	EventName     pgtype.Text `json:"event_name"`
}

func (q *Queries) UpdateOrderState(ctx context.Context, arg UpdateOrderStateParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderState,
		arg.ID,
		arg.Status,
		arg.PaymentStatus,
		arg.TokenNumber,
		arg.TokenStatus,
		arg.StallName,
		arg.EventName,
	)
	var i Order
	err := row.Scan(orderScanTargets(&i)...)
	return i, err
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, food_item_id, name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY name`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return q.queryOrderItems(ctx, listOrderItemsByOrder, orderID)
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, food_item_id, name, price, quantity FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, name`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIds []uuid.UUID) ([]OrderItem, error) {
	return q.queryOrderItems(ctx, listOrderItemsByOrders, orderIds)
}

func (q *Queries) queryOrderItems(ctx context.Context, sql string, args ...interface{}) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.FoodItemID, &i.Name, &i.Price, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return q.queryOrders(ctx, listOrdersByUser, userID)
}

const listOrdersByStall = `-- name: ListOrdersByStall :many
SELECT ` + orderColumns + ` FROM orders o
WHERE o.stall_id = $1
ORDER BY o.created_at DESC
LIMIT $2 OFFSET $3`

type ListOrdersByStallParams struct {
	StallID uuid.UUID `json:"stall_id"`
	Limit   int32     `json:"limit"`
	Offset  int32     `json:"offset"`
}

func (q *Queries) ListOrdersByStall(ctx context.Context, arg ListOrdersByStallParams) ([]Order, error) {
	return q.queryOrders(ctx, listOrdersByStall, arg.StallID, arg.Limit, arg.Offset)
}

const listTokensByUser = `-- name: ListTokensByUser :many
SELECT ` + orderColumns + ` FROM orders o
WHERE o.user_id = $1 AND o.token_number IS NOT NULL
ORDER BY o.created_at DESC`

func (q *Queries) ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return q.queryOrders(ctx, listTokensByUser, userID)
}

const listActiveTokensByStall = `-- name: ListActiveTokensByStall :many
SELECT ` + orderColumns + ` FROM orders o
WHERE o.stall_id = $1 AND o.token_status = 'ACTIVE'
ORDER BY o.token_number`

func (q *Queries) ListActiveTokensByStall(ctx context.Context, stallID uuid.UUID) ([]Order, error) {
	return q.queryOrders(ctx, listActiveTokensByStall, stallID)
}

const listTokensAdmin = `-- name: ListTokensAdmin :many
SELECT ` + orderColumns + ` FROM orders o
WHERE o.token_number IS NOT NULL
  AND ($1::uuid IS NULL OR o.stall_id = $1)
  AND ($2::text IS NULL OR o.token_status = $2)
  AND ($3::text IS NULL OR o.order_type = $3)
  AND ($4::text IS NULL OR o.payment_method = $4)
  AND ($5::timestamptz IS NULL OR o.created_at >= $5)
  AND ($6::timestamptz IS NULL OR o.created_at <= $6)
ORDER BY o.created_at DESC`

type ListTokensAdminParams struct {
	StallID       pgtype.UUID        `json:"stall_id"`
	TokenStatus   pgtype.Text        `json:"token_status"`
	OrderType     pgtype.Text        `json:"order_type"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	From          pgtype.Timestamptz `json:"from"`
	To            pgtype.Timestamptz `json:"to"`
}

func (q *Queries) ListTokensAdmin(ctx context.Context, arg ListTokensAdminParams) ([]Order, error) {
	return q.queryOrders(ctx, listTokensAdmin,
		arg.StallID,
		arg.TokenStatus,
		arg.OrderType,
		arg.PaymentMethod,
		arg.From,
		arg.To,
	)
}

const listOrdersAdmin = `-- name: ListOrdersAdmin :many
SELECT ` + orderColumns + `, u.name AS customer_name, u.phone AS customer_phone
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE ($1::text IS NULL OR u.name ILIKE '%' || $1 || '%')
  AND ($2::int IS NULL OR o.token_number = $2)
ORDER BY o.created_at DESC
LIMIT $3 OFFSET $4`

type ListOrdersAdminParams struct {
	CustomerName pgtype.Text `json:"customer_name"`
	TokenNumber  pgtype.Int4 `json:"token_number"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

type ListOrdersAdminRow struct {
	Order         Order  `json:"order"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

func (q *Queries) ListOrdersAdmin(ctx context.Context, arg ListOrdersAdminParams) ([]ListOrdersAdminRow, error) {
	rows, err := q.db.Query(ctx, listOrdersAdmin, arg.CustomerName, arg.TokenNumber, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrdersAdminRow{}
	for rows.Next() {
		var i ListOrdersAdminRow
		if err := rows.Scan(append(orderScanTargets(&i.Order), &i.CustomerName, &i.CustomerPhone)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
