package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getOrderTotals = `-- name: GetOrderTotals :one
SELECT COUNT(*)::bigint AS total_orders, COALESCE(SUM(total_amount), 0)::numeric AS total_revenue
FROM orders`

type GetOrderTotalsRow struct {
	TotalOrders  int64          `json:"total_orders"`
	TotalRevenue pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetOrderTotals(ctx context.Context) (GetOrderTotalsRow, error) {
	var i GetOrderTotalsRow
	err := q.db.QueryRow(ctx, getOrderTotals).Scan(&i.TotalOrders, &i.TotalRevenue)
	return i, err
}

const countOrdersByStatus = `-- name: CountOrdersByStatus :many
SELECT status, COUNT(*)::bigint AS count FROM orders GROUP BY status ORDER BY status`

type CountOrdersByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var i CountOrdersByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const revenueByStall = `-- name: RevenueByStall :many
SELECT s.id AS stall_id, s.name AS stall_name, COALESCE(SUM(o.total_amount), 0)::numeric AS total
FROM orders o
JOIN stalls s ON s.id = o.stall_id
GROUP BY s.id, s.name
ORDER BY total DESC`

type RevenueByStallRow struct {
	StallID   uuid.UUID      `json:"stall_id"`
	StallName string         `json:"stall_name"`
	Total     pgtype.Numeric `json:"total"`
}

func (q *Queries) RevenueByStall(ctx context.Context) ([]RevenueByStallRow, error) {
	rows, err := q.db.Query(ctx, revenueByStall)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RevenueByStallRow{}
	for rows.Next() {
		var i RevenueByStallRow
		if err := rows.Scan(&i.StallID, &i.StallName, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listDrawParticipants = `-- name: ListDrawParticipants :many
SELECT DISTINCT u.id, u.name, u.email, u.phone, u.branch
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE ($1::uuid IS NULL OR o.stall_id = $1)
  AND ($2::uuid IS NULL OR EXISTS (
        SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.food_item_id = $2))
ORDER BY u.name`

type ListDrawParticipantsParams struct {
	StallID    pgtype.UUID `json:"stall_id"`
	FoodItemID pgtype.UUID `json:"food_item_id"`
}

type ListDrawParticipantsRow struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Email  pgtype.Text `json:"email"`
	Phone  string      `json:"phone"`
	Branch pgtype.Text `json:"branch"`
}

func (q *Queries) ListDrawParticipants(ctx context.Context, arg ListDrawParticipantsParams) ([]ListDrawParticipantsRow, error) {
	rows, err := q.db.Query(ctx, listDrawParticipants, arg.StallID, arg.FoodItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDrawParticipantsRow{}
	for rows.Next() {
		var i ListDrawParticipantsRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Email, &i.Phone, &i.Branch); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
