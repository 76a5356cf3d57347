package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const luckyDrawColumns = `id, draw_number, winner_name, winner_phone, winner_email, winner_branch, order_id, stall_id, stall_name, drawn_at`

func luckyDrawScanTargets(i *LuckyDraw) []any {
	return []any{
		&i.ID,
		&i.DrawNumber,
		&i.WinnerName,
		&i.WinnerPhone,
		&i.WinnerEmail,
		&i.WinnerBranch,
		&i.OrderID,
		&i.StallID,
		&i.StallName,
		&i.DrawnAt,
	}
}

const getLatestLuckyDraw = `-- name: GetLatestLuckyDraw :one
SELECT ` + luckyDrawColumns + ` FROM lucky_draws ORDER BY draw_number DESC LIMIT 1`

func (q *Queries) GetLatestLuckyDraw(ctx context.Context) (LuckyDraw, error) {
	var i LuckyDraw
	err := q.db.QueryRow(ctx, getLatestLuckyDraw).Scan(luckyDrawScanTargets(&i)...)
	return i, err
}

const listLuckyDraws = `-- name: ListLuckyDraws :many
SELECT ` + luckyDrawColumns + ` FROM lucky_draws ORDER BY draw_number DESC`

func (q *Queries) ListLuckyDraws(ctx context.Context) ([]LuckyDraw, error) {
	rows, err := q.db.Query(ctx, listLuckyDraws)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LuckyDraw{}
	for rows.Next() {
		var i LuckyDraw
		if err := rows.Scan(luckyDrawScanTargets(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createLuckyDraw = `-- name: CreateLuckyDraw :one
INSERT INTO lucky_draws (draw_number, winner_name, winner_phone, winner_email, winner_branch, order_id, stall_id, stall_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + luckyDrawColumns

type CreateLuckyDrawParams struct {
	DrawNumber   int32       `json:"draw_number"`
	WinnerName   string      `json:"winner_name"`
	WinnerPhone  string      `json:"winner_phone"`
	WinnerEmail  pgtype.Text `json:"winner_email"`
	WinnerBranch pgtype.Text `json:"winner_branch"`
	OrderID      uuid.UUID   `json:"order_id"`
	StallID      uuid.UUID   `json:"stall_id"`
	StallName    string      `json:"stall_name"`
}

func (q *Queries) CreateLuckyDraw(ctx context.Context, arg CreateLuckyDrawParams) (LuckyDraw, error) {
	row := q.db.QueryRow(ctx, createLuckyDraw,
		arg.DrawNumber,
		arg.WinnerName,
		arg.WinnerPhone,
		arg.WinnerEmail,
		arg.WinnerBranch,
		arg.OrderID,
		arg.StallID,
		arg.StallName,
	)
	var i LuckyDraw
	err := row.Scan(luckyDrawScanTargets(&i)...)
	return i, err
}

// Eligibility is shared by the automatic and manual draw triggers.
const drawEligibleWhere = `
WHERE o.stall_id = $1
  AND o.status = 'Completed'
  AND o.payment_status = 'Paid'
  AND ($2::timestamptz IS NULL OR o.created_at > $2)`

const countDrawEligibleOrders = `-- name: CountDrawEligibleOrders :one
SELECT COUNT(*)::bigint FROM orders o` + drawEligibleWhere

type DrawEligibilityParams struct {
	StallID uuid.UUID          `json:"stall_id"`
	After   pgtype.Timestamptz `json:"after"`
}

func (q *Queries) CountDrawEligibleOrders(ctx context.Context, arg DrawEligibilityParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDrawEligibleOrders, arg.StallID, arg.After).Scan(&count)
	return count, err
}

const listDrawEligibleOrders = `-- name: ListDrawEligibleOrders :many
SELECT o.id AS order_id, u.name, u.phone, u.email, u.branch, s.name AS stall_name
FROM orders o
JOIN users u ON u.id = o.user_id
JOIN stalls s ON s.id = o.stall_id` + drawEligibleWhere + `
ORDER BY o.created_at
LIMIT $3`

type ListDrawEligibleOrdersParams struct {
	StallID uuid.UUID          `json:"stall_id"`
	After   pgtype.Timestamptz `json:"after"`
	Limit   int32              `json:"limit"`
}

type ListDrawEligibleOrdersRow struct {
	OrderID   uuid.UUID   `json:"order_id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Email     pgtype.Text `json:"email"`
	Branch    pgtype.Text `json:"branch"`
	StallName string      `json:"stall_name"`
}

func (q *Queries) ListDrawEligibleOrders(ctx context.Context, arg ListDrawEligibleOrdersParams) ([]ListDrawEligibleOrdersRow, error) {
	rows, err := q.db.Query(ctx, listDrawEligibleOrders, arg.StallID, arg.After, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDrawEligibleOrdersRow{}
	for rows.Next() {
		var i ListDrawEligibleOrdersRow
		if err := rows.Scan(&i.OrderID, &i.Name, &i.Phone, &i.Email, &i.Branch, &i.StallName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
