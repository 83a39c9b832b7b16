package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

// CreateUser inserts an account. A duplicate email (case-insensitive)
// yields store.ErrEmailTaken.
func (db *DB) CreateUser(ctx context.Context, u *store.User) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &store.ErrEmailTaken{Email: u.Email}
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns the account with id, or nil if there is none.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	return db.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail returns the account with email, or nil if there is none.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return db.getUser(ctx, `WHERE LOWER(email) = LOWER($1)`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	var (
		u    store.User
		role string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, role, password_hash, created_at, updated_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Role = types.Role(role)
	return &u, nil
}
