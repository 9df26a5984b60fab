package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

// CreateProfile inserts the public profile for a user.
func (db *DB) CreateProfile(ctx context.Context, p *model.Profile) error {
	const q = `INSERT INTO profiles (id, username) VALUES ($1, $2)`
	_, err := db.Pool.Exec(ctx, q, p.ID, p.Username)
	if isUniqueViolation(err) {
		return apperror.Conflict("profile", p.ID)
	}
	if err != nil {
		return fmt.Errorf("postgres: creating profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile selects one profile.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	const q = `SELECT id, username FROM profiles WHERE id=$1`
	var p model.Profile
	err := db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting profile %s: %w", id, err)
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by username.
func (db *DB) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	const q = `SELECT id, username FROM profiles ORDER BY username, id`
	rows, err := db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Username); err != nil {
			return nil, fmt.Errorf("postgres: scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating profiles: %w", err)
	}
	return profiles, nil
}
