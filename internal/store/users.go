package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, restaurant_id, outlet_id, email, name, password_hash, role,
	is_active, created_at, updated_at`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	var u User
	err := row.Scan(&u.ID, &u.RestaurantID, &u.OutletID, &u.Email, &u.Name,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	var u User
	err := row.Scan(&u.ID, &u.RestaurantID, &u.OutletID, &u.Email, &u.Name,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	RestaurantID pgtype.UUID
	OutletID     pgtype.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (restaurant_id, outlet_id, email, name, password_hash, role)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+userColumns,
		arg.RestaurantID, arg.OutletID, arg.Email, arg.Name, arg.PasswordHash, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.RestaurantID, &u.OutletID, &u.Email, &u.Name,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
