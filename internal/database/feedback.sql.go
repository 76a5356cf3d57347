package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const feedbackColumns = `f.id, f.user_id, f.order_id, f.stall_id, f.rating, f.comment, f.response, f.created_at, f.updated_at`

func feedbackScanTargets(i *Feedback) []any {
	return []any{
		&i.ID,
		&i.UserID,
		&i.OrderID,
		&i.StallID,
		&i.Rating,
		&i.Comment,
		&i.Response,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

const createFeedback = `-- name: CreateFeedback :one
INSERT INTO feedback AS f (user_id, order_id, stall_id, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + feedbackColumns

type CreateFeedbackParams struct {
	UserID  uuid.UUID   `json:"user_id"`
	OrderID uuid.UUID   `json:"order_id"`
	StallID uuid.UUID   `json:"stall_id"`
	Rating  int32       `json:"rating"`
	Comment pgtype.Text `json:"comment"`
}

func (q *Queries) CreateFeedback(ctx context.Context, arg CreateFeedbackParams) (Feedback, error) {
	row := q.db.QueryRow(ctx, createFeedback,
		arg.UserID,
		arg.OrderID,
		arg.StallID,
		arg.Rating,
		arg.Comment,
	)
	var i Feedback
	err := row.Scan(feedbackScanTargets(&i)...)
	return i, err
}

const getFeedback = `-- name: GetFeedback :one
SELECT ` + feedbackColumns + ` FROM feedback f WHERE f.id = $1`

func (q *Queries) GetFeedback(ctx context.Context, id uuid.UUID) (Feedback, error) {
	var i Feedback
	err := q.db.QueryRow(ctx, getFeedback, id).Scan(feedbackScanTargets(&i)...)
	return i, err
}

const getFeedbackByOrder = `-- name: GetFeedbackByOrder :one
SELECT ` + feedbackColumns + ` FROM feedback f WHERE f.order_id = $1`

func (q *Queries) GetFeedbackByOrder(ctx context.Context, orderID uuid.UUID) (Feedback, error) {
	var i Feedback
	err := q.db.QueryRow(ctx, getFeedbackByOrder, orderID).Scan(feedbackScanTargets(&i)...)
	return i, err
}

const respondFeedback = `-- name: RespondFeedback :one
UPDATE feedback AS f SET response = $2, updated_at = now() WHERE f.id = $1
RETURNING ` + feedbackColumns

type RespondFeedbackParams struct {
	ID       uuid.UUID   `json:"id"`
	Response pgtype.Text `json:"response"`
}

func (q *Queries) RespondFeedback(ctx context.Context, arg RespondFeedbackParams) (Feedback, error) {
	var i Feedback
	err := q.db.QueryRow(ctx, respondFeedback, arg.ID, arg.Response).Scan(feedbackScanTargets(&i)...)
	return i, err
}

const listFeedbackByStall = `-- name: ListFeedbackByStall :many
SELECT ` + feedbackColumns + `, u.name AS user_name, s.name AS stall_name
FROM feedback f
JOIN users u ON u.id = f.user_id
JOIN stalls s ON s.id = f.stall_id
WHERE f.stall_id = $1
ORDER BY f.created_at DESC`

const listFeedback = `-- name: ListFeedback :many
SELECT ` + feedbackColumns + `, u.name AS user_name, s.name AS stall_name
FROM feedback f
JOIN users u ON u.id = f.user_id
JOIN stalls s ON s.id = f.stall_id
ORDER BY f.created_at DESC`

type ListFeedbackRow struct {
	Feedback  Feedback `json:"feedback"`
	UserName  string   `json:"user_name"`
	StallName string   `json:"stall_name"`
}

func (q *Queries) ListFeedbackByStall(ctx context.Context, stallID uuid.UUID) ([]ListFeedbackRow, error) {
	return q.queryFeedback(ctx, listFeedbackByStall, stallID)
}

func (q *Queries) ListFeedback(ctx context.Context) ([]ListFeedbackRow, error) {
	return q.queryFeedback(ctx, listFeedback)
}

func (q *Queries) queryFeedback(ctx context.Context, sql string, args ...interface{}) ([]ListFeedbackRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListFeedbackRow{}
	for rows.Next() {
		var i ListFeedbackRow
		if err := rows.Scan(append(feedbackScanTargets(&i.Feedback), &i.UserName, &i.StallName)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
