package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const offerColumns = `o.id, o.title, o.description, o.discount_percentage, o.coupon_code, o.stall_id, o.valid_until, o.is_active, o.created_at, o.updated_at`

func offerScanTargets(i *Offer) []any {
	return []any{
		&i.ID,
		&i.Title,
		&i.Description,
		&i.DiscountPercentage,
		&i.CouponCode,
		&i.StallID,
		&i.ValidUntil,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

const createOffer = `-- name: CreateOffer :one
INSERT INTO offers AS o (title, description, discount_percentage, coupon_code, stall_id, valid_until, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + offerColumns

type CreateOfferParams struct {
	Title              string             `json:"title"`
	Description        pgtype.Text        `json:"description"`
	DiscountPercentage pgtype.Numeric     `json:"discount_percentage"`
	CouponCode         pgtype.Text        `json:"coupon_code"`
	StallID            pgtype.UUID        `json:"stall_id"`
	ValidUntil         pgtype.Timestamptz `json:"valid_until"`
	IsActive           bool               `json:"is_active"`
}

func (q *Queries) CreateOffer(ctx context.Context, arg CreateOfferParams) (Offer, error) {
	row := q.db.QueryRow(ctx, createOffer,
		arg.Title,
		arg.Description,
		arg.DiscountPercentage,
		arg.CouponCode,
		arg.StallID,
		arg.ValidUntil,
		arg.IsActive,
	)
	var i Offer
	err := row.Scan(offerScanTargets(&i)...)
	return i, err
}

const getOffer = `-- name: GetOffer :one
SELECT ` + offerColumns + ` FROM offers o WHERE o.id = $1`

func (q *Queries) GetOffer(ctx context.Context, id uuid.UUID) (Offer, error) {
	var i Offer
	err := q.db.QueryRow(ctx, getOffer, id).Scan(offerScanTargets(&i)...)
	return i, err
}

const listActiveOffers = `-- name: ListActiveOffers :many
SELECT ` + offerColumns + `, s.name AS stall_name
FROM offers o
LEFT JOIN stalls s ON s.id = o.stall_id
WHERE o.is_active = true AND (o.valid_until IS NULL OR o.valid_until >= $1)
ORDER BY o.created_at DESC`

type ListActiveOffersRow struct {
	Offer     Offer       `json:"offer"`
	StallName pgtype.Text `json:"stall_name"`
}

func (q *Queries) ListActiveOffers(ctx context.Context, now time.Time) ([]ListActiveOffersRow, error) {
	rows, err := q.db.Query(ctx, listActiveOffers, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListActiveOffersRow{}
	for rows.Next() {
		var i ListActiveOffersRow
		if err := rows.Scan(append(offerScanTargets(&i.Offer), &i.StallName)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteOffer = `-- name: DeleteOffer :exec
DELETE FROM offers WHERE id = $1`

func (q *Queries) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOffer, id)
	return err
}

// Stall-scoped offers sort ahead of global ones sharing the same code.
const findOfferForCoupon = `-- name: FindOfferForCoupon :one
SELECT ` + offerColumns + `
FROM offers o
WHERE o.coupon_code = $1
  AND o.is_active = true
  AND (o.valid_until IS NULL OR o.valid_until >= $3)
  AND (o.stall_id IS NULL OR o.stall_id = $2)
ORDER BY o.stall_id IS NULL, o.created_at DESC
LIMIT 1`

type FindOfferForCouponParams struct {
	CouponCode string    `json:"coupon_code"`
	StallID    uuid.UUID `json:"stall_id"`
	Now        time.Time `json:"now"`
}

func (q *Queries) FindOfferForCoupon(ctx context.Context, arg FindOfferForCouponParams) (Offer, error) {
	var i Offer
	err := q.db.QueryRow(ctx, findOfferForCoupon, arg.CouponCode, arg.StallID, arg.Now).Scan(offerScanTargets(&i)...)
	return i, err
}
