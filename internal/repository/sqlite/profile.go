package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

// CreateProfile inserts the public profile for an identity user. The
// profile id is the user id.
func (db *DB) CreateProfile(ctx context.Context, p *model.Profile) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, username) VALUES (?, ?)`,
		p.ID, p.Username,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("profile", p.ID)
		}
		return fmt.Errorf("sqlite: creating profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return &p, nil
}

// ListProfiles returns every profile ordered by username.
func (db *DB) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username FROM profiles ORDER BY username, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Username); err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}
	return profiles, nil
}
