package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const foodItemColumns = `id, stall_id, name, description, price, image_url, category, is_available, is_veg, created_at, updated_at`

func scanFoodItem(row interface{ Scan(...any) error }) (FoodItem, error) {
	var i FoodItem
	err := row.Scan(
		&i.ID,
		&i.StallID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.ImageUrl,
		&i.Category,
		&i.IsAvailable,
		&i.IsVeg,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createFoodItem = `-- name: CreateFoodItem :one
INSERT INTO food_items (stall_id, name, description, price, image_url, category, is_available, is_veg)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + foodItemColumns

type CreateFoodItemParams struct {
	StallID     uuid.UUID      `json:"stall_id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Category    pgtype.Text    `json:"category"`
	IsAvailable bool           `json:"is_available"`
	IsVeg       bool           `json:"is_veg"`
}

func (q *Queries) CreateFoodItem(ctx context.Context, arg CreateFoodItemParams) (FoodItem, error) {
	row := q.db.QueryRow(ctx, createFoodItem,
		arg.StallID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.Category,
		arg.IsAvailable,
		arg.IsVeg,
	)
	return scanFoodItem(row)
}

const getFoodItem = `-- name: GetFoodItem :one
SELECT ` + foodItemColumns + ` FROM food_items WHERE id = $1`

func (q *Queries) GetFoodItem(ctx context.Context, id uuid.UUID) (FoodItem, error) {
	return scanFoodItem(q.db.QueryRow(ctx, getFoodItem, id))
}

const listFoodItemsByStall = `-- name: ListFoodItemsByStall :many
SELECT ` + foodItemColumns + ` FROM food_items WHERE stall_id = $1 ORDER BY category NULLS LAST, name`

func (q *Queries) ListFoodItemsByStall(ctx context.Context, stallID uuid.UUID) ([]FoodItem, error) {
	rows, err := q.db.Query(ctx, listFoodItemsByStall, stallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []FoodItem{}
	for rows.Next() {
		i, err := scanFoodItem(rows)
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

const updateFoodItem = `-- name: UpdateFoodItem :one
UPDATE food_items
SET name = $2, description = $3, price = $4, image_url = $5, category = $6,
    is_available = $7, is_veg = $8, updated_at = now()
WHERE id = $1
RETURNING ` + foodItemColumns

type UpdateFoodItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Category    pgtype.Text    `json:"category"`
	IsAvailable bool           `json:"is_available"`
	IsVeg       bool           `json:"is_veg"`
}

func (q *Queries) UpdateFoodItem(ctx context.Context, arg UpdateFoodItemParams) (FoodItem, error) {
	row := q.db.QueryRow(ctx, updateFoodItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.Category,
		arg.IsAvailable,
		arg.IsVeg,
	)
	return scanFoodItem(row)
}

const deleteFoodItem = `-- name: DeleteFoodItem :exec
DELETE FROM food_items WHERE id = $1`

func (q *Queries) DeleteFoodItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteFoodItem, id)
	return err
}
