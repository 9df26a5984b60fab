package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

const userColumns = `id, email, username, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a new identity row. Duplicate email → apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now

	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := db.Pool.Exec(ctx, q, u.ID, u.Email, u.Username, u.PasswordHash, githubIDArg(u.GitHubID), u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("user", u.Email)
	}
	if err != nil {
		return fmt.Errorf("postgres: creating user: %w", err)
	}
	return nil
}

// GetUserByID selects a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail selects a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	u, err := scanUser(db.Pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub inserts the GitHub user or refreshes its email in one
// statement. xmax is 0 only for a freshly inserted row version, which tells
// us whether the row was created.
func (db *DB) UpsertGitHub(ctx context.Context, u *model.User) (bool, error) {
	now := time.Now().UTC()
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, '', $4, $5, $5)
ON CONFLICT (github_id) DO UPDATE SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at
RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var (
		stored   model.User
		githubID *int64
		inserted bool
	)
	err := db.Pool.QueryRow(ctx, q, xid.New().String(), u.Email, u.Username, u.GitHubID, now).Scan(
		&stored.ID, &stored.Email, &stored.Username, &stored.PasswordHash, &githubID,
		&stored.CreatedAt, &stored.UpdatedAt, &inserted,
	)
	if isUniqueViolation(err) {
		return false, apperror.Conflict("user", u.Email)
	}
	if err != nil {
		return false, fmt.Errorf("postgres: upserting github user %d: %w", u.GitHubID, err)
	}
	if githubID != nil {
		stored.GitHubID = *githubID
	}
	*u = stored
	return inserted, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u        model.User
		githubID *int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if githubID != nil {
		u.GitHubID = *githubID
	}
	return &u, nil
}

// githubIDArg maps the zero id of password accounts to NULL.
func githubIDArg(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
