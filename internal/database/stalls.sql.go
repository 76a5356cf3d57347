package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stallColumns = `id, owner_id, name, description, image_url, phone, location, is_approved, is_open, pre_booking_enabled, created_at, updated_at`

func scanStall(row interface{ Scan(...any) error }) (Stall, error) {
	var i Stall
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.Description,
		&i.ImageUrl,
		&i.Phone,
		&i.Location,
		&i.IsApproved,
		&i.IsOpen,
		&i.PreBookingEnabled,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryStalls(ctx context.Context, sql string, args ...interface{}) ([]Stall, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Stall{}
	for rows.Next() {
		i, err := scanStall(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateStall also links the owner's users.stall_id in the same statement.
const createStall = `-- name: CreateStall :one
WITH s AS (
    INSERT INTO stalls (owner_id, name, description, image_url, phone, location, is_approved, pre_booking_enabled)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING ` + stallColumns + `
), linked AS (
    UPDATE users SET stall_id = s.id, updated_at = now()
    FROM s WHERE users.id = s.owner_id
)
SELECT ` + stallColumns + ` FROM s`

type CreateStallParams struct {
	OwnerID           uuid.UUID   `json:"owner_id"`
	Name              string      `json:"name"`
	Description       pgtype.Text `json:"description"`
	ImageUrl          pgtype.Text `json:"image_url"`
	Phone             pgtype.Text `json:"phone"`
	Location          pgtype.Text `json:"location"`
	IsApproved        bool        `json:"is_approved"`
	PreBookingEnabled bool        `json:"pre_booking_enabled"`
}

func (q *Queries) CreateStall(ctx context.Context, arg CreateStallParams) (Stall, error) {
	row := q.db.QueryRow(ctx, createStall,
		arg.OwnerID,
		arg.Name,
		arg.Description,
		arg.ImageUrl,
		arg.Phone,
		arg.Location,
		arg.IsApproved,
		arg.PreBookingEnabled,
	)
	return scanStall(row)
}

const getStall = `-- name: GetStall :one
SELECT ` + stallColumns + ` FROM stalls WHERE id = $1`

func (q *Queries) GetStall(ctx context.Context, id uuid.UUID) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, getStall, id))
}

const getStallByOwner = `-- name: GetStallByOwner :one
SELECT ` + stallColumns + ` FROM stalls WHERE owner_id = $1`

func (q *Queries) GetStallByOwner(ctx context.Context, ownerID uuid.UUID) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, getStallByOwner, ownerID))
}

const listPublicStalls = `-- name: ListPublicStalls :many
SELECT ` + stallColumns + ` FROM stalls WHERE is_approved = true AND is_open = true ORDER BY name`

func (q *Queries) ListPublicStalls(ctx context.Context) ([]Stall, error) {
	return q.queryStalls(ctx, listPublicStalls)
}

const listStalls = `-- name: ListStalls :many
SELECT ` + stallColumns + ` FROM stalls ORDER BY created_at DESC`

func (q *Queries) ListStalls(ctx context.Context) ([]Stall, error) {
	return q.queryStalls(ctx, listStalls)
}

const setStallApproved = `-- name: SetStallApproved :one
UPDATE stalls SET is_approved = $2, updated_at = now() WHERE id = $1
RETURNING ` + stallColumns

type SetStallFlagParams struct {
	ID    uuid.UUID `json:"id"`
	Value bool      `json:"value"`
}

func (q *Queries) SetStallApproved(ctx context.Context, arg SetStallFlagParams) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, setStallApproved, arg.ID, arg.Value))
}

const setStallOpen = `-- name: SetStallOpen :one
UPDATE stalls SET is_open = $2, updated_at = now() WHERE id = $1
RETURNING ` + stallColumns

func (q *Queries) SetStallOpen(ctx context.Context, arg SetStallFlagParams) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, setStallOpen, arg.ID, arg.Value))
}

const setStallPreBooking = `-- name: SetStallPreBooking :one
UPDATE stalls SET pre_booking_enabled = $2, updated_at = now() WHERE id = $1
RETURNING ` + stallColumns

func (q *Queries) SetStallPreBooking(ctx context.Context, arg SetStallFlagParams) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, setStallPreBooking, arg.ID, arg.Value))
}

const updateStallName = `-- name: UpdateStallName :one
UPDATE stalls SET name = $2, updated_at = now() WHERE id = $1
RETURNING ` + stallColumns

type UpdateStallNameParams struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (q *Queries) UpdateStallName(ctx context.Context, arg UpdateStallNameParams) (Stall, error) {
	return scanStall(q.db.QueryRow(ctx, updateStallName, arg.ID, arg.Name))
}
