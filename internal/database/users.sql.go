package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, email, phone, hashed_password, role, branch, college, stall_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.HashedPassword,
		&i.Role,
		&i.Branch,
		&i.College,
		&i.StallID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, email, phone, hashed_password, role, branch, college)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name           string      `json:"name"`
	Email          pgtype.Text `json:"email"`
	Phone          string      `json:"phone"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	Branch         pgtype.Text `json:"branch"`
	College        pgtype.Text `json:"college"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.HashedPassword,
		arg.Role,
		arg.Branch,
		arg.College,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByPhone = `-- name: GetUserByPhone :one
SELECT ` + userColumns + ` FROM users WHERE phone = $1`

func (q *Queries) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByPhone, phone))
}

const getUserPrincipal = `-- name: GetUserPrincipal :one
SELECT id, role, stall_id FROM users WHERE id = $1`

type GetUserPrincipalRow struct {
	ID      uuid.UUID   `json:"id"`
	Role    string      `json:"role"`
	StallID pgtype.UUID `json:"stall_id"`
}

func (q *Queries) GetUserPrincipal(ctx context.Context, id uuid.UUID) (GetUserPrincipalRow, error) {
	row := q.db.QueryRow(ctx, getUserPrincipal, id)
	var i GetUserPrincipalRow
	err := row.Scan(&i.ID, &i.Role, &i.StallID)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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
