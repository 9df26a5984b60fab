package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

const userColumns = `id, email, username, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a new identity record.
//
// github_id is stored as NULL for password accounts: the column is UNIQUE,
// and SQLite allows any number of NULLs in a UNIQUE column but only one 0.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.PasswordHash, nullGitHubID(u.GitHubID), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", u.Email)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail is used by sign-in. Returns apperror.ErrNotFound when unknown.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub inserts or updates a user based on their GitHub ID.
//
// We look the row up first so that an existing user KEEPS their internal ID;
// INSERT OR REPLACE would delete and re-create the row, and the ON DELETE
// CASCADE on sneakers would take their collection with it.
func (db *DB) UpsertGitHub(ctx context.Context, u *model.User) (bool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, u.GitHubID)
	existing, err := scanUser(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := db.CreateUser(ctx, u); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("sqlite: looking up user by github_id %d: %w", u.GitHubID, err)
	}

	// Existing user: refresh the email in case it changed on GitHub. The
	// username is theirs to keep.
	existing.Email = u.Email
	existing.UpdatedAt = time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		existing.Email, existing.UpdatedAt, existing.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, apperror.Conflict("user", u.Email)
		}
		return false, fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
	}

	*u = *existing
	return false, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
