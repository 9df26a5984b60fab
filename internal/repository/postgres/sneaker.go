package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
)

const sneakerColumns = `id, user_id, brand, title, tag, rating, image, in_rotation, created_at, updated_at`

// Create inserts a sneaker row. Rating and Image are passed as pointers;
// pgx writes a nil pointer as NULL.
func (db *DB) Create(ctx context.Context, s *model.Sneaker) error {
	now := time.Now().UTC()
	s.ID = xid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	const q = `
INSERT INTO sneakers (` + sneakerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := db.Pool.Exec(ctx, q,
		s.ID, s.UserID, s.Brand, s.Title, s.Tag, s.Rating, s.Image, s.InRotation, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating sneaker: %w", err)
	}
	return nil
}

// GetByID selects a sneaker by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Sneaker, error) {
	const q = `SELECT ` + sneakerColumns + ` FROM sneakers WHERE id=$1`
	s, err := scanSneaker(db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("sneaker", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting sneaker %s: %w", id, err)
	}
	return s, nil
}

// List selects one user's sneakers, oldest first.
func (db *DB) List(ctx context.Context, q repository.SneakerQuery) ([]model.Sneaker, error) {
	query := `SELECT ` + sneakerColumns + ` FROM sneakers WHERE user_id=$1`
	args := []any{q.UserID}
	if q.InRotation != nil {
		query += ` AND in_rotation=$2`
		args = append(args, *q.InRotation)
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing sneakers: %w", err)
	}
	defer rows.Close()

	sneakers := make([]model.Sneaker, 0)
	for rows.Next() {
		s, err := scanSneaker(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning sneaker: %w", err)
		}
		sneakers = append(sneakers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating sneakers: %w", err)
	}
	return sneakers, nil
}

// Update sets the patched columns on the row owned by ownerID and returns
// the stored row in the same round trip.
func (db *DB) Update(ctx context.Context, id, ownerID string, patch model.SneakerPatch) (*model.Sneaker, error) {
	cols, vals := repository.PatchColumns(patch)
	if len(cols) == 0 {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(vals)+3)
	for i, c := range cols {
		args = append(args, vals[i])
		sets = append(sets, c+" = $"+strconv.Itoa(len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))
	args = append(args, id, ownerID)

	q := `UPDATE sneakers SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)-1) + ` AND user_id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + sneakerColumns

	s, err := scanSneaker(db.Pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("sneaker", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: updating sneaker %s: %w", id, err)
	}
	return s, nil
}

// Delete removes the row owned by ownerID and returns it.
func (db *DB) Delete(ctx context.Context, id, ownerID string) (*model.Sneaker, error) {
	const q = `DELETE FROM sneakers WHERE id=$1 AND user_id=$2 RETURNING ` + sneakerColumns
	s, err := scanSneaker(db.Pool.QueryRow(ctx, q, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("sneaker", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: deleting sneaker %s: %w", id, err)
	}
	return s, nil
}

func scanSneaker(row pgx.Row) (*model.Sneaker, error) {
	var s model.Sneaker
	err := row.Scan(
		&s.ID, &s.UserID, &s.Brand, &s.Title, &s.Tag,
		&s.Rating, &s.Image, &s.InRotation, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
